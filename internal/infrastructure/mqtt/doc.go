// Package mqtt provides MQTT client connectivity for cogweb.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing atom events from the engine
//   - Topic subscriptions for the command ingress
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
// Every topic lives under a configurable prefix (default "cogweb"):
//
//	cogweb/system/status            retained online/offline status
//	cogweb/atom/created/<type>      engine atom events
//	cogweb/request/<operation>      command ingress
//	cogweb/response/<operation>     command outcomes
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().AtomCreated("ConceptNode")
//	client.Publish(topic, payload, 1, false)
//
// Tests that need a live broker are behind the "integration" build tag.
package mqtt
