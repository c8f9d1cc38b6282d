package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"finlink/internal/domain/notification"
)

const maxDeviceBodySize = 1 << 20 // 1 MiB

type NotificationHandler struct {
	notificationService *notification.Service
}

func NewNotificationHandler(notificationService *notification.Service) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

type RegisterDeviceRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
}

// HandleRegisterDevice registers an FCM device token so reconnect prompts can
// reach the user's devices.
func (h *NotificationHandler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	var req RegisterDeviceRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxDeviceBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	device, err := h.notificationService.RegisterDevice(r.Context(), notification.RegisterDeviceParams{
		UserID:     userID,
		Token:      req.Token,
		DeviceType: req.DeviceType,
	})
	if err != nil {
		if errors.Is(err, notification.ErrInvalidToken) || errors.Is(err, notification.ErrInvalidDeviceType) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error registering device for user %d: %v", userID, err)
		http.Error(w, "Failed to register device", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(device)
}

// HandleUnregisterDevice deactivates a device token.
func (h *NotificationHandler) HandleUnregisterDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := r.PathValue("token")
	if token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	if err := h.notificationService.UnregisterDevice(r.Context(), token); err != nil {
		if errors.Is(err, notification.ErrDeviceTokenNotFound) {
			http.Error(w, "Device token not found", http.StatusNotFound)
			return
		}
		log.Printf("Error unregistering device token: %v", err)
		http.Error(w, "Failed to unregister device", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
