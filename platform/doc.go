// Package platform runs host-platform side effects as subprocesses. Its
// Launcher offers the offline language pack installer when a session hits
// a fatal recognizer error; it implements session.Remediator.
package platform
