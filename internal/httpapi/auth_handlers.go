package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Welison92/luestilo-backoffice/internal/service/auth"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenPairOutput struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType        string    `json:"token_type"`
}

func newTokenPairOutput(pair auth.TokenPair) tokenPairOutput {
	return tokenPairOutput{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		TokenType:        "bearer",
	}
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Corpo da requisição inválido", err)
		return
	}

	user, err := s.auth.Register(req.Email, req.Password)
	if err != nil {
		respondDomainError(c, "Falha ao registrar usuário", err)
		return
	}

	respondSuccess(c, http.StatusCreated, "Usuário registrado com sucesso", gin.H{
		"id":    user.ID,
		"email": user.Email,
	})
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Corpo da requisição inválido", err)
		return
	}

	pair, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		respondDomainError(c, "Falha na autenticação", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Autenticado com sucesso", newTokenPairOutput(pair))
}

func (s *Server) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Corpo da requisição inválido", err)
		return
	}

	pair, err := s.auth.Refresh(req.RefreshToken)
	if err != nil {
		respondDomainError(c, "Falha ao renovar token", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Token renovado com sucesso", newTokenPairOutput(pair))
}

func (s *Server) logout(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if err := s.auth.Logout(token); err != nil {
		respondDomainError(c, "Falha ao encerrar sessão", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Sessão encerrada com sucesso", nil)
}
