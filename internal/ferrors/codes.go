// Package ferrors gives the pipeline's failure classes a
// typed shape instead of bare string errors.
package ferrors

// Code identifies the class of failure a PipelineError or CatalogError
// represents.
type Code string

const (
	// CodeInvalidFormat covers PCMFormat construction rejected at init.
	CodeInvalidFormat Code = "INVALID_FORMAT"
	// CodeEmptyInput covers a nil/empty buffer passed to appendStreamBuffer.
	CodeEmptyInput Code = "EMPTY_INPUT"
	// CodeCorruptCatalog covers a header or size-guard violation on load.
	CodeCorruptCatalog Code = "CORRUPT_CATALOG"
	// CodeFFTFailure covers the FFT primitive erroring on one short frame.
	CodeFFTFailure Code = "FFT_FAILURE"
)
