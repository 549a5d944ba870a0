package model

import "time"

// Loan はマネージャーが掲載する融資商品を表す。
// Descriptionは保存前にサニタイズ済みのHTML。
type Loan struct {
	ID           string
	Title        string
	Description  string
	Category     string
	InterestRate float64
	AddedBy      string // 掲載したマネージャーのemail
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
