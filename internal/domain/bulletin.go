package domain

const (
	BulletinTurnOffDate = "turn_off_date"
	BulletinMessage     = "message"
)

// Settings are the bulletin values managers can edit.
type Settings struct {
	TurnOffDate string `json:"turn_off_date" validate:"omitempty,datetime=2006-01-02"`
	Message     string `json:"message" validate:"max=2000"`
}
