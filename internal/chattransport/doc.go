// Package chattransport implements the inbound/outbound chat contract
// (spec.md §6 "Inbound (from chat transport / HTTP clients)" and
// "Outbound message payload"): two Redis streams carrying user messages
// in and assistant replies out, with the same consumer-group delivery
// internal/jobqueue uses for job streams, plus outbound secret
// redaction ported from the teacher's pkg/chat secret scanner.
//
// The chat-transport front-end itself (the bot/webhook process that
// actually talks to users) is an external collaborator per spec.md §1;
// this package only defines the contract a front-end publishes into and
// the core consumes from, and the contract the core publishes replies
// onto for that front-end to deliver.
package chattransport
