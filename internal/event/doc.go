/*
Package event provides a type-safe pub/sub event bus for session and edit
lifecycle notifications.

It decouples the Session Manager and Janitor (publishers) from analytics
aggregation and any external observers (subscribers) so neither needs a
direct dependency on the other.

# Architecture

Built on watermill's gochannel for infrastructure while keeping direct-call
semantics so subscribers receive typed event data without a serialization
round trip.

# Event Types

  - session.created: a new session was created
  - session.expired: the Janitor reclaimed a session past its TTL
  - session.completed: a client explicitly closed a session
  - edit.applied: an edit committed a new version
  - edit.failed: an edit failed after the Session Manager's internal retries
  - edit.clarification_requested: reference resolution could not find a referent
  - version.compacted: old versions of a session were compacted (the type
    and its payload are defined; no component in this repository publishes it)

# Usage

	unsubscribe := event.Subscribe(event.EditApplied, func(e event.Event) {
		data := e.Data.(event.EditAppliedData)
		dailyCounters.Increment("edits_applied", 1)
	})
	defer unsubscribe()

	event.Publish(event.Event{
		Type: event.EditApplied,
		Data: event.EditAppliedData{SessionID: id, Version: 2},
	})

# Subscriber Safety

Subscribers invoked via PublishSync run in the publisher's goroutine and
must return quickly and never call Publish/PublishSync re-entrantly.
*/
package event
