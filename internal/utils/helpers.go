package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/senyabanana/rfq-service/internal/models"

	"github.com/rs/zerolog/log"
)

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, errorResponse *models.ErrorResponse) {
	statusCode := errorResponse.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	WriteJSON(w, statusCode, errorResponse)
}

// SendError отправляет ошибку с произвольным кодом и сообщением.
func SendError(w http.ResponseWriter, statusCode int, kind models.ErrorKind, message string) {
	SendErrorResponse(w, models.NewErrorResponse(kind, statusCode, message))
}

// WriteError переводит ошибку сервиса в HTTP-ответ. Нетипизированные ошибки
// логируются и отдаются клиенту как 500 с сообщением fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) && errorResponse.StatusCode != 0 {
		log.Debug().Err(err).Str("path", r.URL.Path).Str("kind", string(errorResponse.Kind)).Msg("request rejected")
		SendErrorResponse(w, errorResponse)
		return
	}
	log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(fallback)
	SendError(w, http.StatusInternalServerError, models.KindInternal, fallback)
}

// WriteJSON пишет тело ответа в JSON с заданным кодом.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// ParseLimitOffset обрабатывает limit и offset
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	var limit, offset int
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > 50 {
			return 0, 0, fmt.Errorf("invalid limit parameter, must be a positive integer [0:50]")
		}
	} else {
		limit = 5
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter, must be a non-negative integer")
		}
	} else {
		offset = 0
	}

	return limit, offset, nil
}

// Contains проверяет, входит ли значение в список допустимых.
func Contains[T comparable](valid []T, value T) bool {
	for _, v := range valid {
		if v == value {
			return true
		}
	}
	return false
}
