package db

// QueryError envuelve un fallo de transporte o de consulta contra el
// almacén remoto. Los servicios lo devuelven siempre tal cual; la capa
// HTTP decide si degrada a lista vacía (lecturas) o responde error
// explícito (escrituras).
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError wraps err as a QueryError; returns nil if err is nil.
func NewQueryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &QueryError{Op: op, Err: err}
}
