package aggregate

// GlobalSummary is the formatted wallet report; field names and string formats are part of the public contract
type GlobalSummary struct {
	Overview    Overview     `json:"overview"`
	Volume      Volume       `json:"volume"`
	Performance Performance  `json:"performance"`
	BestTrade   *TradeResult `json:"bestTrade"`
	WorstTrade  *TradeResult `json:"worstTrade"`
	Tokens      []TokenStats `json:"tokens"`
}

type Overview struct {
	TotalTransactions int    `json:"totalTransactions"`
	TotalTrades       int    `json:"totalTrades"`
	UniqueTokens      int    `json:"uniqueTokens"`
	ProfitableTrades  int    `json:"profitableTrades"`
	LosingTrades      int    `json:"losingTrades"`
	WinRate           string `json:"winRate"`
	Purchases         int    `json:"purchases"`
	Sales             int    `json:"sales"`
	NoChange          int    `json:"noChange"`
}

type Volume struct {
	TotalTokensTraded   string `json:"totalTokensTraded"`
	TotalVolumeUSD      string `json:"totalVolumeUSD"`
	TotalVolumeSOL      string `json:"totalVolumeSOL"`
	AverageTradeSizeUSD string `json:"averageTradeSizeUSD"`
}

type Performance struct {
	TotalGainLoss    string `json:"totalGainLoss"`
	AverageGainLoss  string `json:"averageGainLoss"`
	TotalMissedATH   string `json:"totalMissedATH"`
	AverageMissedATH string `json:"averageMissedATH"`
}

type TradeResult struct {
	Mint        string `json:"mint"`
	GainLoss    string `json:"gainLoss"`
	GainLossUSD string `json:"gainLossUSD"`
	GainLossSOL string `json:"gainLossSOL"`
	Signature   string `json:"signature"`
	BlockTime   int64  `json:"blockTime"`
}

// Per-token rolling sums, raw numbers
type TokenStats struct {
	Mint                 string  `json:"mint"`
	Trades               int     `json:"trades"`
	TotalTokensTraded    float64 `json:"totalTokensTraded"`
	TotalVolumeUSD       float64 `json:"totalVolumeUSD"`
	TotalGainLoss        float64 `json:"totalGainLoss"`
	TotalMissedATH       float64 `json:"totalMissedATH"`
	BestGainLoss         float64 `json:"bestGainLoss"`
	WorstGainLoss        float64 `json:"worstGainLoss"`
	TotalPurchasePrice   float64 `json:"totalPurchasePrice"`
	TotalAthPrice        float64 `json:"totalAthPrice"`
	AverageGainLoss      float64 `json:"averageGainLoss"`
	AverageMissedATH     float64 `json:"averageMissedATH"`
	AverageVolumeUSD     float64 `json:"averageVolumeUSD"`
	AveragePurchasePrice float64 `json:"averagePurchasePrice"`
	AverageAthPrice      float64 `json:"averageAthPrice"`
}
