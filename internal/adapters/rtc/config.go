package rtc

import (
	"fmt"

	"github.com/dkeye/tandem/internal/config"
	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// ClientConfig builds the peer connection configuration handed to clients.
// Every URL must parse as a STUN or TURN URI.
func ClientConfig(servers []config.ICEServer) (webrtc.Configuration, error) {
	if len(servers) == 0 {
		return DefaultWebRTCConfig(), nil
	}
	out := webrtc.Configuration{ICEServers: make([]webrtc.ICEServer, 0, len(servers))}
	for _, s := range servers {
		if len(s.URLs) == 0 {
			return webrtc.Configuration{}, fmt.Errorf("ice server without urls")
		}
		for _, raw := range s.URLs {
			uri, err := stun.ParseURI(raw)
			if err != nil {
				return webrtc.Configuration{}, fmt.Errorf("ice server %q: %w", raw, err)
			}
			if (uri.Scheme == stun.SchemeTypeTURN || uri.Scheme == stun.SchemeTypeTURNS) && s.Username == "" {
				return webrtc.Configuration{}, fmt.Errorf("turn server %q needs a username", raw)
			}
		}
		ice := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			ice.Credential = s.Credential
			ice.CredentialType = webrtc.ICECredentialTypePassword
		}
		out.ICEServers = append(out.ICEServers, ice)
	}
	log.Info().Str("module", "rtc").Int("ice_servers", len(out.ICEServers)).Msg("client rtc config ready")
	return out, nil
}
