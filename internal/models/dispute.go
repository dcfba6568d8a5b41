package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Статусы споров
const (
	DisputeStatusOpen     = "open"
	DisputeStatusInReview = "in_review"
	DisputeStatusResolved = "resolved"
	DisputeStatusClosed   = "closed"
)

// Стороны, в пользу которых может быть разрешён спор
const (
	DisputeWinnerClient     = "client"
	DisputeWinnerFreelancer = "freelancer"
)

// Dispute представляет спор между сторонами проекта.
// Активным считается спор в статусе open или in_review; на проект
// допускается не более одного активного спора.
type Dispute struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ProjectID     uuid.UUID  `db:"project_id" json:"project_id"`
	ComplainantID uuid.UUID  `db:"complainant_id" json:"complainant_id"`
	RespondentID  uuid.UUID  `db:"respondent_id" json:"respondent_id"`
	Type          string     `db:"type" json:"type"`
	Description   string     `db:"description" json:"description"`
	Status        string     `db:"status" json:"status"`
	Winner        *string    `db:"winner" json:"winner,omitempty"`
	Resolution    *string    `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy    *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt    *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// DisputeMessage — сообщение стороны спора. Сообщение в закрытом споре
// переоткрывает его.
type DisputeMessage struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DisputeID uuid.UUID `db:"dispute_id" json:"dispute_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DisputeEvidence описывает файл-доказательство, приложенный к спору.
type DisputeEvidence struct {
	ID         uuid.UUID `db:"id" json:"id"`
	DisputeID  uuid.UUID `db:"dispute_id" json:"dispute_id"`
	UploaderID uuid.UUID `db:"uploader_id" json:"uploader_id"`
	FilePath   string    `db:"file_path" json:"file_path"`
	FileName   string    `db:"file_name" json:"file_name"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// DisputeResolutionInput — параметры решения администратора по спору.
type DisputeResolutionInput struct {
	Winner       string
	Resolution   string
	RefundAmount *decimal.Decimal
}
