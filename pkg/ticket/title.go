package ticket

import "fmt"

// Category is the upper 32 bits of a title ID.
type Category uint32

const (
	CategorySystem              Category = 0x00000001
	CategoryDiscGame            Category = 0x00010000
	CategoryDownloadableChannel Category = 0x00010001
	CategorySystemChannel       Category = 0x00010002
	CategoryDiscBasedChannel    Category = 0x00010004
	CategoryDLC                 Category = 0x00010005
	CategoryHiddenChannel       Category = 0x00010008
)

// CategoryOf extracts the category from a title ID.
func CategoryOf(titleID uint64) Category {
	return Category(titleID >> 32)
}

// Exportable reports whether titles of this category can be exported.
func (c Category) Exportable() bool {
	switch c {
	case CategoryDownloadableChannel, CategoryDiscBasedChannel, CategoryDLC:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	switch c {
	case CategorySystem:
		return "system"
	case CategoryDiscGame:
		return "disc game"
	case CategoryDownloadableChannel:
		return "downloadable channel"
	case CategorySystemChannel:
		return "system channel"
	case CategoryDiscBasedChannel:
		return "disc-based channel"
	case CategoryDLC:
		return "dlc"
	case CategoryHiddenChannel:
		return "hidden channel"
	default:
		return fmt.Sprintf("0x%08X", uint32(c))
	}
}

// IsExportable reports whether the title in cb belongs to an exportable category.
// cb must come from a successfully classified ticket.
func IsExportable(cb CommonBlock) bool {
	return CategoryOf(cb.TitleID()).Exportable()
}
