package db

// Category is the closed set of content classes the detector rate-limits.
type Category string

const (
	CategorySticker   Category = "sticker"
	CategoryAnimation Category = "animation"
	CategoryText      Category = "text"
	CategoryPhoto     Category = "photo"
	CategoryVideo     Category = "video"
)

var categories = []Category{
	CategorySticker,
	CategoryAnimation,
	CategoryText,
	CategoryPhoto,
	CategoryVideo,
}

func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func ParseCategory(s string) (Category, bool) {
	for _, c := range categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// UsesFingerprint reports whether repetition for the category is matched on
// identical content. Stickers and animations count regardless of content.
func (c Category) UsesFingerprint() bool {
	switch c {
	case CategoryText, CategoryPhoto, CategoryVideo:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}
