package models

// AssetType classifies a holding.
type AssetType string

const (
	AssetStock  AssetType = "Stock"
	AssetETF    AssetType = "ETF"
	AssetCrypto AssetType = "Crypto"
	AssetBond   AssetType = "Bond"
)

// Sector is a free-form category string; the constants below are the
// well-known values used across the app.
type Sector string

const (
	SectorTechnology            Sector = "Technology"
	SectorHealthcare            Sector = "Healthcare"
	SectorFinancial             Sector = "Financial"
	SectorConsumerDiscretionary Sector = "Consumer Discretionary"
	SectorConsumerStaples       Sector = "Consumer Staples"
	SectorEnergy                Sector = "Energy"
	SectorIndustrial            Sector = "Industrial"
	SectorMaterials             Sector = "Materials"
	SectorUtilities             Sector = "Utilities"
	SectorRealEstate            Sector = "Real Estate"
	SectorCommunication         Sector = "Communication Services"
	SectorCrypto                Sector = "Crypto"
	SectorGeneral               Sector = "General" // broad ETFs
	SectorMix                   Sector = "Mix"     // General-sector ETFs in allocation charts
)

// AssetTypePalette lists asset-class chart colors in assignment order.
var AssetTypePalette = []string{
	"#3B82F6", // Stock - blue
	"#10B981", // ETF - green
	"#F59E0B", // Crypto - orange
	"#EF4444", // Bond - red
}

// SectorPalette lists sector chart colors in assignment order.
var SectorPalette = []string{
	"#3B82F6", // blue
	"#10B981", // green
	"#F59E0B", // orange
	"#EF4444", // red
	"#8B5CF6", // purple
	"#7C3AED", // violet
	"#06B6D4", // cyan
	"#84CC16", // lime
	"#F97316", // orange-500
	"#EC4899", // pink
	"#6366F1", // indigo
	"#F59E0B", // amber
	"#6B7280", // gray
	"#6B7280", // gray
}

// DisplayName returns the plural label used for asset-class slices.
func (t AssetType) DisplayName() string {
	switch t {
	case AssetStock:
		return "Stocks"
	case AssetETF:
		return "ETFs"
	case AssetCrypto:
		return "Crypto"
	case AssetBond:
		return "Bonds"
	default:
		return string(t)
	}
}

// IndustryFor derives the industry bucket for a holding. Sector ETFs
// keep their sector; General-sector ETFs bucket as "Mix". Everything
// else uses its sector, defaulting to Technology.
func IndustryFor(h Holding) Sector {
	if h.AssetType == AssetETF {
		if h.Sector != "" && h.Sector != SectorGeneral {
			return h.Sector
		}
		return SectorMix
	}
	if h.Sector != "" {
		return h.Sector
	}
	return SectorTechnology
}

// PopularAsset is one entry in the fixed quick-add catalog.
type PopularAsset struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	AssetType AssetType `json:"assetType"`
	Sector    Sector    `json:"sector"`
}

// PopularAssets is the fixed catalog offered by the add-holding form.
var PopularAssets = []PopularAsset{
	{Symbol: "AAPL", Name: "Apple Inc.", AssetType: AssetStock, Sector: SectorTechnology},
	{Symbol: "MSFT", Name: "Microsoft Corporation", AssetType: AssetStock, Sector: SectorTechnology},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", AssetType: AssetStock, Sector: SectorTechnology},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", AssetType: AssetStock, Sector: SectorConsumerDiscretionary},
	{Symbol: "TSLA", Name: "Tesla Inc.", AssetType: AssetStock, Sector: SectorConsumerDiscretionary},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", AssetType: AssetStock, Sector: SectorTechnology},
	{Symbol: "META", Name: "Meta Platforms Inc.", AssetType: AssetStock, Sector: SectorTechnology},
	{Symbol: "NFLX", Name: "Netflix Inc.", AssetType: AssetStock, Sector: SectorConsumerDiscretionary},
	{Symbol: "JPM", Name: "JPMorgan Chase & Co.", AssetType: AssetStock, Sector: SectorFinancial},
	{Symbol: "JNJ", Name: "Johnson & Johnson", AssetType: AssetStock, Sector: SectorHealthcare},

	{Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust", AssetType: AssetETF, Sector: SectorGeneral},
	{Symbol: "QQQ", Name: "Invesco QQQ Trust", AssetType: AssetETF, Sector: SectorGeneral},
	{Symbol: "VTI", Name: "Vanguard Total Stock Market ETF", AssetType: AssetETF, Sector: SectorGeneral},
	{Symbol: "VOO", Name: "Vanguard S&P 500 ETF", AssetType: AssetETF, Sector: SectorGeneral},
	{Symbol: "ARKK", Name: "ARK Innovation ETF", AssetType: AssetETF, Sector: SectorGeneral},

	{Symbol: "XLF", Name: "Financial Select Sector SPDR Fund", AssetType: AssetETF, Sector: SectorFinancial},
	{Symbol: "XLK", Name: "Technology Select Sector SPDR Fund", AssetType: AssetETF, Sector: SectorTechnology},
	{Symbol: "XLE", Name: "Energy Select Sector SPDR Fund", AssetType: AssetETF, Sector: SectorEnergy},
	{Symbol: "XLV", Name: "Health Care Select Sector SPDR Fund", AssetType: AssetETF, Sector: SectorHealthcare},
	{Symbol: "XLI", Name: "Industrial Select Sector SPDR Fund", AssetType: AssetETF, Sector: SectorIndustrial},

	{Symbol: "BTC", Name: "Bitcoin", AssetType: AssetCrypto, Sector: SectorCrypto},
	{Symbol: "ETH", Name: "Ethereum", AssetType: AssetCrypto, Sector: SectorCrypto},
	{Symbol: "ADA", Name: "Cardano", AssetType: AssetCrypto, Sector: SectorCrypto},
	{Symbol: "SOL", Name: "Solana", AssetType: AssetCrypto, Sector: SectorCrypto},
	{Symbol: "MATIC", Name: "Polygon", AssetType: AssetCrypto, Sector: SectorCrypto},
	{Symbol: "AVAX", Name: "Avalanche", AssetType: AssetCrypto, Sector: SectorCrypto},
}
