package receipt

// UnknownStore is the sentinel store name used when no known store
// pattern matches the first lines of a receipt.
const UnknownStore = "不明な店舗"

// Item is a single purchased line item extracted from receipt text.
type Item struct {
	Name     string `json:"name"`
	Price    int    `json:"price"` // yen
	Quantity int    `json:"quantity"`
}

// ParsedReceipt is the structured result of parsing raw OCR text.
type ParsedReceipt struct {
	StoreName   string `json:"store_name"`
	Items       []Item `json:"items"`
	TotalAmount int    `json:"total_amount"`
	Date        string `json:"date"` // ja-JP display form, e.g. 2024/1/15
}
