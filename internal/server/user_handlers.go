package server

import (
	"campusfeed/internal/models"
	"campusfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /user/register
// @Summary Register
// @Description Create an account with a random default avatar
// @Tags user
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string,nickname=string} true "Registration"
// @Success 200 {object} models.Response{data=models.PublicUser}
// @Failure 400 {object} models.Response
// @Router /user/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Nickname string `json:"nickname"`
	}
	if !bindJSON(c, &req) {
		return nil
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Nickname: req.Nickname,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return models.RespondOK(c, "registration successful", user)
}

// Login handles POST /user/login
// @Summary Login
// @Description Exchange credentials for an access/refresh token pair
// @Tags user
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Credentials"
// @Success 200 {object} models.Response{data=models.PublicUser}
// @Failure 400 {object} models.Response
// @Router /user/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return nil
	}
	if req.Username == "" || req.Password == "" {
		return s.respondError(c, models.NewValidationError("username and password are required"))
	}

	session, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}

	return models.RespondWithTokens(c, "login successful", session.User, models.TokenPair{
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	})
}

// Refresh handles POST /user/refresh
// @Summary Refresh tokens
// @Description Trade a refresh token for a new token pair
// @Tags user
// @Accept json
// @Produce json
// @Param request body object{refreshToken=string} true "Refresh token"
// @Success 200 {object} models.Response
// @Failure 401 {object} models.Response
// @Router /user/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !bindJSON(c, &req) {
		return nil
	}

	pair, err := s.authService.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return s.respondError(c, err)
	}

	return models.RespondWithTokens(c, "refresh successful", nil, models.TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Profile handles GET /user/profile
// @Summary Current user profile
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Response{data=models.ProfileView}
// @Failure 401 {object} models.Response
// @Router /user/profile [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	userID := currentUserID(c)
	user, err := s.userService.Profile(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	unread, err := s.messageService.UnreadTotal(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return models.RespondOK(c, "ok", models.ProfileView{
		PublicUser:     user,
		UnreadMessages: unread,
		Online:         s.hub.Connected(userID),
		Features:       s.featureFlags.Snapshot(userID),
	})
}

// UpdateProfile handles PUT /user/update
// @Summary Update profile
// @Description Only fields present in the body are changed
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProfileUpdate true "Profile fields"
// @Success 200 {object} models.Response{data=models.PublicUser}
// @Failure 400 {object} models.Response
// @Router /user/update [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req models.ProfileUpdate
	if !bindJSON(c, &req) {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return s.respondError(c, err)
	}

	return models.RespondOK(c, "profile updated", user)
}
