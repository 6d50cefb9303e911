package dto

type SendChatRequest struct {
	Message string `json:"message" validate:"required"`
}

type SendChatResponse struct {
	Sent  *MessageResponse `json:"sent"`
	Reply *MessageResponse `json:"reply"`
}
