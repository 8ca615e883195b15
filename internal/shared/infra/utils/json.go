package utils

import (
	"context"
	"encoding/json"
	"fmt"

	integration "github.com/davicafu/hexashop/internal/shared/events"
)

// Typed adapta un handler tipado a uno que recibe el campo data crudo del sobre.
// Un JSON que no decodifica no va a decodificar en el siguiente intento: el error es permanente.
func Typed[T any](handle func(ctx context.Context, evt T) error) func(ctx context.Context, data json.RawMessage) error {
	return func(ctx context.Context, data json.RawMessage) error {
		var evt T
		if err := json.Unmarshal(data, &evt); err != nil {
			return integration.Permanent(fmt.Errorf("decode %T: %w", evt, err))
		}
		return handle(ctx, evt)
	}
}
