package credits

// Costs is the price list of the generation steps, in credits.
type Costs struct {
	Script        int
	Prompts       int
	ImagePerScene int
}

// DefaultCosts charges one credit per step and one per generated image.
var DefaultCosts = Costs{Script: 1, Prompts: 1, ImagePerScene: 1}

// Full is the price of a complete run producing plannedScenes images.
func (c Costs) Full(plannedScenes int) int {
	return c.Script + c.Prompts + c.Media(plannedScenes)
}

// Media is the price of rendering the given number of scenes.
func (c Costs) Media(scenes int) int {
	if scenes < 0 {
		scenes = 0
	}
	return c.ImagePerScene * scenes
}
