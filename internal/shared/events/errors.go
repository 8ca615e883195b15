package events

import "errors"

type permanentError struct {
	err error
}

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marca un error de consumidor que no se arregla reintentando.
// El mensaje se reconoce y se registra en el log en lugar de volver a entregarse.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent indica si algún error de la cadena fue marcado con Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
