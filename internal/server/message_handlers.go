package server

import (
	"campusfeed/internal/models"
	"campusfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ChatList handles GET /message/list
// @Summary Conversations of the caller
// @Description Latest message and unread count per counterpart
// @Tags message
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Response{data=[]models.ChatSummary}
// @Router /message/list [get]
func (s *Server) ChatList(c *fiber.Ctx) error {
	chats, err := s.messageService.ChatList(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "ok", chats)
}

// ChatMessages handles GET /message/chat/:userId
// @Summary Messages with one user
// @Description Oldest first. Opening a conversation marks it read.
// @Tags message
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Counterpart user ID"
// @Success 200 {object} models.Response{data=[]models.MessageView}
// @Router /message/chat/{userId} [get]
func (s *Server) ChatMessages(c *fiber.Ctx) error {
	otherID, ok := s.parseID(c, "userId")
	if !ok {
		return nil
	}

	msgs, err := s.messageService.ChatMessages(c.UserContext(), currentUserID(c), otherID)
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "ok", msgs)
}

// SendMessage handles POST /message/send
// @Summary Send a direct message
// @Tags message
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{receiverId=int,content=string,messageType=string} true "Message"
// @Success 200 {object} models.Response{data=models.MessageView}
// @Failure 400 {object} models.Response
// @Router /message/send [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	var req struct {
		ReceiverID  uint   `json:"receiverId"`
		Content     string `json:"content"`
		MessageType string `json:"messageType"`
	}
	if !bindJSON(c, &req) {
		return nil
	}

	msg, err := s.messageService.Send(c.UserContext(), service.SendMessageInput{
		SenderID:    currentUserID(c),
		ReceiverID:  req.ReceiverID,
		Content:     req.Content,
		MessageType: req.MessageType,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "message sent", msg)
}

// MarkRead handles POST /message/read
// @Summary Mark a conversation read
// @Tags message
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{chatUserId=int} true "Counterpart"
// @Success 200 {object} models.Response{data=object{updated=int}}
// @Router /message/read [post]
func (s *Server) MarkRead(c *fiber.Ctx) error {
	var req struct {
		ChatUserID uint `json:"chatUserId"`
	}
	if !bindJSON(c, &req) {
		return nil
	}

	updated, err := s.messageService.MarkRead(c.UserContext(), currentUserID(c), req.ChatUserID)
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "marked as read", fiber.Map{"updated": updated})
}
