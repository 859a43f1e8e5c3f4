// Package mqtt provides the bridge's connection to the MQTT broker.
//
// The bridge talks to Home Assistant exclusively over MQTT: entity
// discovery configs, states and attributes are published retained, switch
// commands arrive on per-entity "set" topics, and a retained availability
// topic (also registered as the Last Will) tells Home Assistant whether
// the bridge is alive.
//
//	Domintell gateways ↔ domintell-bridge ↔ MQTT broker ↔ Home Assistant
//
// # Usage
//
//	topics := mqtt.NewTopics("homeassistant", "domintell")
//	client, err := mqtt.Connect(cfg.MQTT, topics.Availability())
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(topics.AllCommands("switch"), 1,
//	    func(topic string, payload []byte) error {
//	        component, objectID, _ := topics.ParseCommand(topic)
//	        ...
//	    })
//
// Reconnects are handled by paho; tracked subscriptions are restored and
// "online" is republished on every reconnect.
package mqtt
