package catalog

import "github.com/agrolab/sample-engine/internal/domain"

var feedsCatalog = newCatalog(domain.ModeFeeds,
	[]TestPackage{
		{
			ID:    "nir-standard",
			Name:  "NIR Standard",
			Price: 18.50,
			Analytes: []string{
				"Dry Matter", "Crude Protein", "ADF", "NDF", "Ash", "Fat",
				"TDN", "NEL", "RFV",
			},
		},
		{
			ID:    "nir-plus",
			Name:  "NIR Plus",
			Price: 26.00,
			Analytes: []string{
				"Dry Matter", "Crude Protein", "ADF", "NDF", "Ash", "Fat",
				"TDN", "NEL", "RFV", "Lignin", "Starch", "Sugar (ESC)",
				"NDF Digestibility 30hr",
			},
		},
		{
			ID:    "wet-chem-complete",
			Name:  "Wet Chemistry Complete",
			Price: 42.00,
			Analytes: []string{
				"Dry Matter", "Crude Protein", "Soluble Protein", "ADF", "NDF",
				"Ash", "Fat", "Lignin", "Starch", "Sugar (ESC)", "TDN", "NEL",
				"RFV", "Calcium", "Phosphorus", "Magnesium", "Potassium",
			},
		},
		{
			ID:    "grain-proximate",
			Name:  "Grain Proximate",
			Price: 21.00,
			Analytes: []string{
				"Dry Matter", "Crude Protein", "Fat", "Fiber", "Ash", "Starch",
			},
		},
	},
	[]AddOn{
		{
			ID:          "fermentation",
			Name:        "Fermentation Profile",
			Price:       12.00,
			Description: "pH plus lactic, acetic, propionic, and butyric acids for ensiled feeds.",
			Analytes:    []string{"pH", "Lactic Acid", "Acetic Acid", "Propionic Acid", "Butyric Acid"},
		},
		{
			ID:          "minerals",
			Name:        "Minerals (Complete)",
			Price:       9.50,
			Description: "Macro and trace mineral panel by ICP.",
			Analytes: []string{
				"Calcium", "Phosphorus", "Magnesium", "Potassium", "Sulfur",
				"Sodium", "Iron", "Zinc", "Copper", "Manganese",
			},
		},
		{
			ID:          "nitrate",
			Name:        "Nitrate",
			Price:       7.00,
			Description: "Nitrate-N screen for drought-stressed forages.",
			Analytes:    []string{"Nitrate-N"},
		},
		{
			ID:          "mycotoxin-screen",
			Name:        "Mycotoxin Screen",
			Price:       28.00,
			Description: "Aflatoxin, vomitoxin, and zearalenone screen.",
			Analytes:    []string{"Aflatoxin", "Vomitoxin (DON)", "Zearalenone"},
		},
		{
			ID:          "ivd-48",
			Name:        "In Vitro Digestibility 48hr",
			Price:       15.00,
			Description: "48-hour in vitro true digestibility.",
			Analytes:    []string{"IVTD 48hr"},
		},
	},
)

var soilCatalog = newCatalog(domain.ModeSoil,
	[]TestPackage{
		{
			ID:    "basic-fertility",
			Name:  "Basic Fertility",
			Price: 15.00,
			Analytes: []string{
				"pH", "Buffer pH", "Phosphorus (P1)", "Potassium", "Organic Matter", "CEC",
			},
		},
		{
			ID:    "complete-fertility",
			Name:  "Complete Fertility",
			Price: 25.00,
			Analytes: []string{
				"pH", "Buffer pH", "Phosphorus (P1)", "Phosphorus (P2)", "Potassium",
				"Calcium", "Magnesium", "Organic Matter", "CEC", "Base Saturation",
			},
		},
		{
			ID:    "micronutrient-panel",
			Name:  "Micronutrient Panel",
			Price: 34.00,
			Analytes: []string{
				"Zinc", "Manganese", "Iron", "Copper", "Boron", "Sulfur",
			},
		},
	},
	[]AddOn{
		{
			ID:          "soluble-salts",
			Name:        "Soluble Salts",
			Price:       6.00,
			Description: "Electrical conductivity for salt-affected ground.",
			Analytes:    []string{"Soluble Salts"},
		},
		{
			ID:          "soil-nitrate",
			Name:        "Nitrate-N",
			Price:       8.00,
			Description: "Pre-sidedress nitrate test.",
			Analytes:    []string{"Nitrate-N"},
		},
		{
			ID:          "texture",
			Name:        "Texture",
			Price:       18.00,
			Description: "Sand, silt, and clay fractions by hydrometer.",
			Analytes:    []string{"Sand", "Silt", "Clay"},
		},
	},
)
