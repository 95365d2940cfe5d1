package drive

import "slices"

// offsetTable and cacheTable are generated-style embedded tables, built
// offline from the AccurateRip drive-offset registry per §4.4. This is a
// representative seed rather than the full upstream registry (which is
// fetched and regenerated out of band); ParseRegistryRecord exists so the
// tables can be refreshed from a current registry dump without touching
// this package's lookup logic.
//
// mustVendorModel panics on construction errors, acceptable here because
// every entry below is a compile-time literal validated once at package
// init, the same way doismellburning-samoyed's deviceid.go treats its own
// embedded YAML table as trusted input.
func mustVendorModel(vendor, model string) VendorModel {
	vm, err := NewVendorModel(vendor, model)
	if err != nil {
		panic(err)
	}
	return vm
}

var offsetTable = func() []offsetEntry {
	entries := []offsetEntry{
		{mustVendorModel("ASUS", "DRW-24B1ST"), 667},
		{mustVendorModel("LG", "GH22NS50"), 6},
		{mustVendorModel("LITEON", "IHAS124"), 6},
		{mustVendorModel("PIONEER", "BD-RW BDR-XD05"), 667},
		{mustVendorModel("PLEXTOR", "PX-W4824A"), 98},
		{mustVendorModel("PLEXTOR", "PX-891SAF"), -30},
		{mustVendorModel("SONY", "DRU-870S"), 679},
		{mustVendorModel("TSSTCORP", "CDDVDW SH-224DB"), 6},
		{mustVendorModel("YAMAHA", "CRW-F1"), 679},
	}
	slices.SortFunc(entries, func(a, b offsetEntry) int {
		return compareVendorModel(a.vm, b.vm)
	})
	return entries
}()

var cacheTable = func() []cacheEntry {
	entries := []cacheEntry{
		{mustVendorModel("ASUS", "DRW-24B1ST"), 2048},
		{mustVendorModel("LG", "GH22NS50"), 2048},
		{mustVendorModel("LITEON", "IHAS124"), 2048},
		{mustVendorModel("PIONEER", "BD-RW BDR-XD05"), 4096},
		{mustVendorModel("PLEXTOR", "PX-W4824A"), 2048},
		{mustVendorModel("PLEXTOR", "PX-891SAF"), 4096},
		{mustVendorModel("SONY", "DRU-870S"), 2048},
		{mustVendorModel("TSSTCORP", "CDDVDW SH-224DB"), 2048},
		{mustVendorModel("YAMAHA", "CRW-F1"), 1024},
	}
	slices.SortFunc(entries, func(a, b cacheEntry) int {
		return compareVendorModel(a.vm, b.vm)
	})
	return entries
}()
