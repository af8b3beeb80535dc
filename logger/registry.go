package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// components caches one logger per component name, derived from the global
// logger. The cache is dropped whenever the global logger or the level
// overrides change.
var components = struct {
	sync.Mutex
	levels map[string]zerolog.Level
	cache  map[string]*Logger
}{cache: make(map[string]*Logger)}

// Get returns the logger for a named component: the global logger tagged
// with name, at the component's override level if one is configured.
func Get(name string) *Logger {
	components.Lock()
	defer components.Unlock()
	if l, ok := components.cache[name]; ok {
		return l
	}
	l := GetGlobalLogger().WithComponent(name)
	if lvl, ok := components.levels[name]; ok {
		l = &Logger{logger: l.logger.Level(lvl), service: l.service}
	}
	components.cache[name] = l
	return l
}

func setComponentLevels(levels map[string]zerolog.Level) {
	components.Lock()
	defer components.Unlock()
	components.levels = levels
	components.cache = make(map[string]*Logger)
}

func resetComponents() {
	components.Lock()
	defer components.Unlock()
	components.cache = make(map[string]*Logger)
}
