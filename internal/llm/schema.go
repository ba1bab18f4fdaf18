package llm

// BuildReceiptJSONSchema returns a JSON-Schema (draft 2020-12 subset) for the
// fields the receipt prompt asks for. Used only for advisory review of
// extracted records; a record that fails validation is still kept as-is.
func BuildReceiptJSONSchema() map[string]any {
	props := map[string]any{
		"日付":   map[string]any{"type": "string", "minLength": 1},
		"店名":   map[string]any{"type": "string", "minLength": 1},
		"合計金額": map[string]any{"type": "string", "minLength": 1},
		"登録番号": map[string]any{"type": "string", "minLength": 1},
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"日付", "店名", "合計金額", "登録番号"},
	}
}
