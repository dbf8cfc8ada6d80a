// Package pubsub implements message validation and topic-to-subscription
// push delivery.
//
// A publish payload arrives as {"data": "<base64 of a UTF-8 JSON string>"}.
// Validate gates it (size, base64, JSON) without transforming it; the Engine
// decodes it exactly once and fans the decoded text out to every subscription
// of the topic concurrently. Delivery outcomes are collected per subscription
// so one bad endpoint cannot fail the publish or cancel sibling deliveries.
package pubsub
