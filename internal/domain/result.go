package domain

// OracleResult es el resultado independiente del fetch de un símbolo en el oracle.
// Err es nil, ErrNotFound/ErrUnavailable (ausencia) o *SourceError.
type OracleResult struct {
	Symbol string
	Price  RawOraclePrice
	Err    error
}

// PoolResult es el resultado independiente de buscar el pool de un símbolo.
type PoolResult struct {
	Symbol string
	Pool   RawPoolPrice
	Err    error
}
