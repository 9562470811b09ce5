package dto

import "github.com/noah-isme/studyabroad-api/internal/models"

// ToggleFavoriteRequest adds or removes a saved item.
type ToggleFavoriteRequest struct {
	ItemType models.FavoriteItemType `json:"item_type" validate:"required,oneof=university program scholarship"`
	ItemID   string                  `json:"item_id" validate:"required"`
}

// ToggleFavoriteResponse tells the client the resulting state.
type ToggleFavoriteResponse struct {
	Favorited bool `json:"favorited"`
}

// DocumentUploadRequest carries the form fields of a document upload.
type DocumentUploadRequest struct {
	RequirementID string `form:"requirement_id" json:"requirement_id"`
}

// ChatRequest is a conversation with the study advisor.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Locale   string        `json:"locale" validate:"omitempty,max=10"`
}

// ChatMessage is one turn of a chat.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=8000"`
}

// ChatResponse returns the advisor's answer.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// GenerateRequest is a free-form completion.
type GenerateRequest struct {
	Prompt string `json:"prompt" validate:"required,max=16000"`
	System string `json:"system" validate:"omitempty,max=8000"`
	JSON   bool   `json:"json"`
}

// GenerateResponse returns generated text.
type GenerateResponse struct {
	Text string `json:"text"`
}

// StartTranslationRunRequest launches a bulk program translation.
type StartTranslationRunRequest struct {
	Locales []string `json:"locales"`
}
