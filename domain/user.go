package domain

// UserID is the identifier resolved upstream for a connection.
// The engine never inspects it beyond equality.
type UserID string

func (u UserID) String() string {
	return string(u)
}
