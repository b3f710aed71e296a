package mapbridge

import "fmt"

// DirectionError reports an outbound-only message received from the map.
type DirectionError struct {
	Type string
}

func (e *DirectionError) Error() string {
	return fmt.Sprintf("mapbridge: %s is not accepted from the map", e.Type)
}
