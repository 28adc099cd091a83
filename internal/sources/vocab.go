package sources

import "strings"

const (
	CategoryElectronics = "Electronics"
	CategoryFashion     = "Fashion"
	CategoryHome        = "Home & Kitchen"
	CategoryBeauty      = "Beauty"
	CategorySports      = "Sports & Outdoors"
)

// queryCategories maps search terms to the fixed taxonomy. Terms absent from
// the table fall back to Electronics.
var queryCategories = map[string]string{
	"phone": CategoryElectronics, "smartphone": CategoryElectronics,
	"laptop": CategoryElectronics, "computer": CategoryElectronics,
	"headphones": CategoryElectronics, "earbuds": CategoryElectronics,
	"television": CategoryElectronics, "tv": CategoryElectronics,
	"camera": CategoryElectronics, "tablet": CategoryElectronics,
	"smart watch": CategoryElectronics, "speaker": CategoryElectronics,
	"console": CategoryElectronics, "router": CategoryElectronics,
	"monitor": CategoryElectronics, "keyboard": CategoryElectronics,

	"dress": CategoryFashion, "shirt": CategoryFashion,
	"t-shirt": CategoryFashion, "tshirt": CategoryFashion,
	"shoes": CategoryFashion, "sneakers": CategoryFashion,
	"jeans": CategoryFashion, "jacket": CategoryFashion,
	"skirt": CategoryFashion, "suit": CategoryFashion,
	"blouse": CategoryFashion, "sweater": CategoryFashion,
	"heels": CategoryFashion, "trousers": CategoryFashion,
	"coat": CategoryFashion, "handbag": CategoryFashion,
	"clothing": CategoryFashion, "fashion": CategoryFashion,

	"blender": CategoryHome, "kettle": CategoryHome,
	"cookware": CategoryHome, "fridge": CategoryHome,

	"makeup": CategoryBeauty, "perfume": CategoryBeauty,
	"skincare": CategoryBeauty,

	"football": CategorySports, "fitness": CategorySports,
	"running": CategorySports,
}

// CategoryForQuery resolves the taxonomy category for a search term.
func CategoryForQuery(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if cat, ok := queryCategories[q]; ok {
		return cat
	}
	// multi-word queries match on any known term
	for _, tok := range strings.Fields(q) {
		if cat, ok := queryCategories[tok]; ok {
			return cat
		}
	}
	return CategoryElectronics
}

// IsFashionQuery reports whether a query or category is fashion-related,
// used by ranking to favor the fashion-specialized source.
func IsFashionQuery(query, category string) bool {
	if category == CategoryFashion {
		return true
	}
	return CategoryForQuery(query) == CategoryFashion
}

// brandVocab holds the curated brand vocabularies per category, matched
// against titles when the source sends no explicit brand.
var brandVocab = map[string][]string{
	CategoryElectronics: {
		"Samsung", "Apple", "Sony", "LG", "Dell", "HP", "Lenovo", "Huawei",
		"Xiaomi", "Canon", "Nikon", "JBL", "Bose", "Asus", "Acer", "Toshiba",
		"Panasonic", "Philips", "Nokia", "Tecno", "Itel", "Infinix", "Hisense",
	},
	CategoryFashion: {
		"Nike", "Adidas", "Zara", "H&M", "Gucci", "Levi's", "Puma", "Reebok",
		"Gap", "Uniqlo", "Lacoste", "Vans", "Converse", "Timberland",
		"New Balance", "Tommy Hilfiger",
	},
	CategoryHome: {
		"Philips", "Tefal", "Kenwood", "Russell Hobbs", "Bosch", "Binatone",
	},
	CategoryBeauty: {
		"Nivea", "L'Oreal", "Maybelline", "Dove", "Garnier",
	},
	CategorySports: {
		"Nike", "Adidas", "Puma", "Wilson", "Speedo",
	},
}

// colorNames is the fixed color vocabulary for fashion records.
var colorNames = []string{
	"Black", "White", "Red", "Blue", "Green", "Yellow", "Pink", "Purple",
	"Orange", "Brown", "Grey", "Gray", "Navy", "Beige", "Maroon", "Teal",
	"Gold", "Silver", "Cream", "Khaki", "Burgundy",
}
