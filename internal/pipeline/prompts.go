package pipeline

import "strings"

const lineParsePrompt = `You are a data extraction engine.

Given a single bank transaction line, extract the following fields:

- date: the transaction date ONLY
- vendor_raw: the full vendor name and description
- amount: transaction amount as a number

Rules:
- If the line contains two dates, the FIRST date is the transaction date.
- Ignore the posted date.
- Do not invent or normalize vendor names.
- Preserve original spelling in vendor_raw.
- Output MUST be valid JSON.
- Do NOT include explanations, markdown, or extra text.

Input:
{line}

Output:
`

const vendorNormalizePrompt = `You are an entity extraction engine.

Task:
Extract the PRIMARY brand name from a credit card transaction string.

Rules:
- English only
- Brand name only
- No locations
- No domains (.com, .ca)
- No explanations
- Lowercase
- Use hyphens between words
- One short brand name only

Input: {vendor}
Output:
`

func buildLinePrompt(line string) string {
	return strings.Replace(lineParsePrompt, "{line}", strings.TrimSpace(line), 1)
}

func buildVendorPrompt(vendor string) string {
	return strings.Replace(vendorNormalizePrompt, "{vendor}", vendor, 1)
}
