package models

// CandlesRequest queries the rolling window of one timeframe.
type CandlesRequest struct {
	TF    string `query:"tf" json:"tf" validate:"required"`
	Limit int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=5000"`
}
