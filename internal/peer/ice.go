package peer

import (
	"net"
	"strings"

	"github.com/pion/webrtc/v4"

	"github.com/kenobeee/mettta-space/internal/config"
)

// ICEConfiguration builds the peer connection configuration from cfg.
// Relay-only transport is used when forced, or when a TURN server exists
// and the host looks like it sits behind a VPN or carrier NAT.
func ICEConfiguration(cfg *config.Config) webrtc.Configuration {
	var servers []webrtc.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}

	turn := cfg.GetTURNServers()
	if turn != nil {
		username, password := cfg.GetTURNCredentials()
		servers = append(servers, webrtc.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}

	policy := webrtc.ICETransportPolicyAll
	if turn != nil && (cfg.ForceRelay || behindTunnel()) {
		policy = webrtc.ICETransportPolicyRelay
	}

	return webrtc.Configuration{
		ICEServers:         servers,
		ICETransportPolicy: policy,
	}
}

var tunnelPrefixes = []string{"tun", "tap", "wg", "ppp", "utun", "warp"}

// behindTunnel reports whether an active interface is a tunnel or carries
// a 100.64.0.0/10 address.
func behindTunnel() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	_, cgnat, _ := net.ParseCIDR("100.64.0.0/10")

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		name := strings.ToLower(iface.Name)
		for _, prefix := range tunnelPrefixes {
			if strings.HasPrefix(name, prefix) {
				return true
			}
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && cgnat.Contains(ipnet.IP) {
				return true
			}
		}
	}
	return false
}
