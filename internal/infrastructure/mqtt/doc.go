// Package mqtt provides the MQTT client authgate uses as its auth event bus.
//
// Every instance publishes auth events (registered, login_succeeded,
// login_failed, logout, session_revoked) to <prefix>/auth/events/<type>.
// Instances also subscribe to session_revoked so a revocation made on one
// instance reaches WebSocket clients connected to another.
//
//	authgate A ──publish──▶ broker ──deliver──▶ authgate B ──push──▶ browser
//
// The bus is optional. When mqtt.enabled is false nothing in this package is used.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) for any broker that is not on localhost
//   - Payloads carry subject and session ids, never tokens or passwords
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
//	err = client.Subscribe(topics.AuthEvent("session_revoked"), 1,
//	    func(topic string, payload []byte) error {
//	        return relay(payload)
//	    })
package mqtt
