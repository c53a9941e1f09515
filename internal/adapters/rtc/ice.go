// Package rtc builds the peer connection configuration browsers use for
// their direct media link. The server itself never opens media.
package rtc

import (
	"github.com/dkeye/Ring/internal/config"
	"github.com/pion/webrtc/v4"
)

const defaultSTUN = "stun:stun.l.google.com:19302"

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{defaultSTUN},
			},
		},
	}
}

// WebRTCConfig converts configured ICE servers, falling back to the public
// STUN server when none are set. Servers without URLs are skipped.
func WebRTCConfig(servers []config.ICEServer) webrtc.Configuration {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		if len(s.URLs) == 0 {
			continue
		}
		ice := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			ice.Username = s.Username
			ice.Credential = s.Credential
			ice.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, ice)
	}
	if len(out) == 0 {
		return DefaultWebRTCConfig()
	}
	return webrtc.Configuration{ICEServers: out}
}

// ICEServerView is the browser-facing RTCIceServer shape.
type ICEServerView struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

func ClientICEServers(cfg webrtc.Configuration) []ICEServerView {
	out := make([]ICEServerView, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		view := ICEServerView{URLs: s.URLs, Username: s.Username}
		if cred, ok := s.Credential.(string); ok {
			view.Credential = cred
		}
		out = append(out, view)
	}
	return out
}
