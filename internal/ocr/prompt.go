package ocr

// ExtractionPrompt instructs the model to return only product lines as JSON.
// Receipts use Colombian number formatting.
const ExtractionPrompt = `Analyze this receipt image and extract ONLY the products or services purchased.

RULES:
1. Extract ONLY individual product/service lines.
2. Completely IGNORE:
   - Subtotals, totals, grand totals
   - Taxes (IVA, INC, etc.)
   - Global discounts
   - Tips or service charges
   - Merchant information
   - Dates, invoice numbers and other metadata

3. PRICES use Colombian formatting:
   - A period (.) separates THOUSANDS: 12.500 = 12500
   - A comma (,) separates DECIMALS: 12.500,50 = 12500.50
   - Always convert to a plain decimal number

4. QUANTITY:
   - If it is not visible or not stated, use 1
   - Look for markers such as "x2", "2x", "Cant: 2"

5. CONFIDENCE (0 to 1):
   - 0.9-1.0: perfectly legible
   - 0.7-0.9: legible with minor doubts
   - 0.5-0.7: partially legible, possible errors
   - < 0.5: very hard to read

6. NAME:
   - Use the name exactly as printed on the receipt
   - Keep the original casing
   - Do not translate or modify it

Reply ONLY with a valid JSON object in exactly this format:
{
  "items": [
    {
      "name": "Product name",
      "quantity": 1,
      "unit_price": 12500.00,
      "confidence": 0.95
    }
  ]
}

If no valid products are found, reply: {"items": []}
Do NOT include explanations, only the JSON.`
