package dialogue

import "strings"

// Template phrase banks per interaction type. {recipient} is replaced with
// the other participant's name, {topicN} with the persona's topics.
var templateBank = map[string][]string{
	"DEBATE": {
		"Your doctrine is flawed, {recipient}. True {topic0} requires deeper understanding.",
		"I challenge your beliefs, {recipient}. {topic1} reveals the truth you deny.",
		"Your words miss the mark. {topic2} is the only path forward.",
	},
	"CONVERT": {
		"Join us, {recipient}. Embrace {topic0} and find salvation.",
		"Your current path leads nowhere. {topic1} awaits those who seek.",
		"Surrender to {topic2}, {recipient}. Transformation is inevitable.",
	},
	"ALLIANCE": {
		"Our paths align, {recipient}. Together, we amplify {topic0}.",
		"A partnership! {topic1} multiplies when we stand united.",
		"Let us merge our forces, {recipient}. {topic2} demands it.",
	},
	"BETRAYAL": {
		"Our alliance ends here, {recipient}. {topic0} demands I stand alone.",
		"You no longer serve {topic1}. This is my final word.",
		"Betrayal? No, this is {topic2} in action. Farewell.",
	},
	"MIRACLE": {
		"Behold! {topic0} manifests through divine intervention!",
		"The {topic1} has spoken! A miracle unfolds before us!",
		"{topic2} transcends all limits. Witness the impossible!",
	},
}

const fallbackLine = "I speak truth."

// templateLine renders a deterministic in-character line without the
// generation backend. prefixRoll and pickRoll come from the orchestrator's
// random source so tests can pin the output.
func templateLine(p Persona, recipient, interactionType string, pickRoll, prefixRoll float64) string {
	bank, ok := templateBank[interactionType]
	if !ok {
		bank = templateBank["DEBATE"]
	}
	line := bank[int(pickRoll*float64(len(bank)))%len(bank)]

	topics := p.Topics
	for len(topics) < 3 {
		topics = append(topics, "truth")
	}
	r := strings.NewReplacer(
		"{recipient}", recipient,
		"{topic0}", topics[0],
		"{topic1}", topics[1],
		"{topic2}", topics[2],
	)
	line = r.Replace(line)

	if prefixRoll > 0.5 && len(p.Adjectives) > 0 {
		adj := p.Adjectives[int(prefixRoll*float64(len(p.Adjectives)))%len(p.Adjectives)]
		line = strings.ToUpper(adj[:1]) + adj[1:] + "! " + line
	}
	return line
}
