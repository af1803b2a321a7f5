// Package ocr extracts line items from receipt photos using a multimodal
// language model.
//
// An Extractor sends the image with a fixed extraction prompt to a Model,
// validates the JSON answer and retries failed attempts with exponential
// backoff. Calls are gated by a Limiter so the upstream quota is never
// exceeded; a rejected call makes no network request.
package ocr
