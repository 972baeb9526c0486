package models

import "time"

type Parent struct {
	ID            string     `json:"id" gorm:"primaryKey;size:26"`
	Lang          string     `json:"lang"`
	Name          string     `json:"name"`
	Email         string     `json:"email" gorm:"uniqueIndex"`
	Password      string     `json:"-"`
	FirebaseUID   string     `json:"firebase_uid" gorm:"index"`
	Role          string     `json:"role"`
	Code          string     `json:"code" gorm:"size:4;index"` // Ограничиваем длину кода до 4 символов
	CodeExpiresAt *time.Time `json:"code_expires_at"`          // Время истечения кода
	PushToken     string     `json:"-"`                        // FCM токен устройства родителя
	CreatedAt     time.Time  `json:"created_at"`
}

func (p *Parent) IsCodeValid(now time.Time) bool {
	return p.Code != "" && p.CodeExpiresAt != nil && now.Before(*p.CodeExpiresAt)
}

// RefreshCode обновляет код привязки со сроком действия ttl
func (p *Parent) RefreshCode(code string, now time.Time, ttl time.Duration) {
	p.Code = code
	expiresAt := now.Add(ttl)
	p.CodeExpiresAt = &expiresAt
}
