package models

import "time"

// Abstract represents the abstracts table.
type Abstract struct {
	ID               int64     `gorm:"primaryKey;column:id" json:"id"`
	UserID           *int64    `gorm:"column:user_id" json:"user_id,omitempty"`
	Title            string    `gorm:"column:title" json:"title"`
	PresenterName    string    `gorm:"column:presenter_name" json:"presenter_name"`
	InstitutionName  *string   `gorm:"column:institution_name" json:"institution_name,omitempty"`
	PresentationType string    `gorm:"column:presentation_type" json:"presentation_type"`
	AbstractContent  string    `gorm:"column:abstract_content" json:"abstract_content"`
	CoAuthors        *string   `gorm:"column:co_authors" json:"co_authors,omitempty"`
	FilePath         *string   `gorm:"column:file_path" json:"file_path,omitempty"`
	FileName         *string   `gorm:"column:file_name" json:"file_name,omitempty"`
	FileSize         *int64    `gorm:"column:file_size" json:"file_size,omitempty"`
	Status           string    `gorm:"column:status;default:pending" json:"status"`
	AbstractNumber   *string   `gorm:"column:abstract_number" json:"abstract_number,omitempty"`
	RegistrationID   *string   `gorm:"column:registration_id" json:"registration_id,omitempty"`
	SubmissionDate   time.Time `gorm:"column:submission_date;autoCreateTime" json:"submission_date"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"updated_at"`
	ReviewerComments *string   `gorm:"column:reviewer_comments" json:"reviewer_comments,omitempty"`
	FinalFilePath    *string   `gorm:"column:final_file_path" json:"final_file_path,omitempty"`

	// Relations
	Owner *User `gorm:"foreignKey:UserID" json:"owner,omitempty"`
}

// TableName overrides
func (Abstract) TableName() string {
	return "abstracts"
}

// SubmissionNumber returns the public abstract number, falling back to the row id.
func (a *Abstract) SubmissionNumber() string {
	if a.AbstractNumber != nil && *a.AbstractNumber != "" {
		return *a.AbstractNumber
	}
	return formatID(a.ID)
}
