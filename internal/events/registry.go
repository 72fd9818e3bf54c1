package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// generation
	"generation.started":   {},
	"generation.completed": {},
	"generation.failed":    {},

	// story
	"story.requested": {},
	"story.generated": {},
	"story.invalid":   {},
	"story.warning":   {},
	"story.cache_hit": {},

	// image
	"image.exported": {},
	"image.fallback": {},
	"image.failed":   {},

	// playthrough
	"playthrough.started":   {},
	"playthrough.advanced":  {},
	"playthrough.completed": {},
	"playthrough.restarted": {},
	"playthrough.replaced":  {},

	// scene
	"scene.entered":       {},
	"scene.asset_timeout": {},
	"scene.asset_missing": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
