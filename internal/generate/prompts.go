package generate

// samplePrompts is the curated list behind RandomSamplePrompt. Entries are
// meant to show off what the model can do across styles and subjects.
var samplePrompts = []string{
	"A futuristic cityscape at sunset with flying cars weaving between glass towers",
	"A cozy cabin in a snowy forest, warm light glowing from the windows",
	"A watercolor painting of a fox sleeping under a maple tree in autumn",
	"An astronaut riding a horse across the surface of Mars, photorealistic",
	"A bustling night market in a rain-soaked alley, neon signs reflecting in puddles",
	"A macro photograph of a dewdrop on a spider web at dawn",
	"An art deco poster of a lighthouse guiding ships through a storm",
	"A whimsical treehouse village connected by rope bridges, golden hour light",
	"A bowl of ramen rendered in the style of a Dutch still-life oil painting",
	"A bioluminescent jellyfish drifting through a deep ocean trench",
	"A steam locomotive crossing a stone viaduct above a misty valley",
	"An isometric illustration of a tiny island with a single windmill",
}
