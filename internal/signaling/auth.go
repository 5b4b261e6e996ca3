package signaling

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kenobeee/mettta-space/internal/account"
	"github.com/kenobeee/mettta-space/internal/protocol"
)

func profileOf(u account.User) protocol.Profile {
	return protocol.Profile{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: u.DisplayName(),
	}
}

func (h *Hub) authenticate(p *participant, token string) {
	u, err := h.accounts.Authenticate(token)
	if err != nil {
		h.send(p.id, protocol.AuthError{Message: err.Error()})
		return
	}
	h.bindUser(p, u)
}

func (h *Hub) register(p *participant, firstName, lastName string) error {
	ctx, cancel := h.storeContext()
	defer cancel()

	u, err := h.accounts.Register(ctx, firstName, lastName, h.now())
	if errors.Is(err, account.ErrInvalidName) {
		h.send(p.id, protocol.AuthError{Message: err.Error()})
		return nil
	}
	if err != nil {
		return err
	}

	h.logger.Info("User registered", "client", p.id, "user", u.ID)
	h.bindUser(p, u)
	return nil
}

// bindUser attaches an account to the connection and adopts its name.
func (h *Hub) bindUser(p *participant, u account.User) {
	p.userID = u.ID
	p.displayName = u.DisplayName()

	h.send(p.id, protocol.AuthOK{Token: u.Token, Profile: profileOf(u)})

	if r, err := h.currentRoom(p); err == nil {
		h.broadcastLobbyState(r)
	}
}

// clientInfo claims a device id. A second live connection for the same
// device is told so and closed; the first one stays.
func (h *Hub) clientInfo(p *participant, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrValidation)
	}

	if holder, ok := h.devices[deviceID]; ok && holder != p.id && h.registry.IsLive(holder) {
		h.logger.Warn("Duplicate device", "client", p.id, "device", deviceID, "holder", holder)
		h.sendError(p.id, ErrDuplicateDevice)
		if conn, ok := h.registry.Conn(p.id); ok {
			conn.Close(CloseDuplicateDevice, "duplicate device")
		}
		return nil
	}

	if p.deviceID != "" && p.deviceID != deviceID && h.devices[p.deviceID] == p.id {
		delete(h.devices, p.deviceID)
	}
	p.deviceID = deviceID
	h.devices[deviceID] = p.id
	return nil
}
