package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/utils"
)

// decodeBody разбирает JSON-тело запроса. Пустое тело допустимо и оставляет v нулевым.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func sendInvalidBody(w http.ResponseWriter) {
	utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid request body")
}

func actorFrom(r *http.Request) models.Actor {
	actor, _ := models.ActorFrom(r.Context())
	return actor
}
