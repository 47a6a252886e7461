// package services defines the HTTP collaborators the core depends on
//
// Two boundaries live here: the podcast sync backend (user/device
// registration and subscription sync) and the open web (feed import and
// media download). Both are expressed as interfaces so the orchestration
// layer and tests can substitute doubles.
package services
