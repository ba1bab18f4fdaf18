package llm

// DefaultReceiptPrompt asks the model for the four receipt fields as JSON,
// with Japanese field names and the formatting rules the downstream table
// expects. Overridable via EXTRACTION_PROMPT for other document kinds.
const DefaultReceiptPrompt = `これは日本語のレシートです。以下をJSON形式で出力して。
１：日付
２：店名
３：合計金額
４：登録番号
<出力要件>
読み取れない項目は「不明」とする。日付はYYYY-MM-DD形式とする。合計金額は数字のみでカンマや円記号は含めない。合計金額が日本円でない場合は「外国通貨」とする。項目名（日付・店名・合計金額・登録番号）は日本語に統一する。
`
