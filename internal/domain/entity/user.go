package entity

import "time"

// User operador que registra movimientos. Role es solo descriptivo.
type User struct {
	ID        int64
	Name      string
	Role      string
	CreatedAt time.Time
}
