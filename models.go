package main

import "github.com/shnefix/Code-Extractor/models"

// Request and response bodies of the HTTP API.

type extractResponse struct {
	Codes []string `json:"codes"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type extractionsResponse struct {
	Extractions []models.Extraction `json:"extractions"`
}
