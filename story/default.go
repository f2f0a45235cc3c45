package story

import (
	_ "embed"

	"github.com/nathoo/vnplayer/types"
)

//go:embed intro.xml
var introXML string

// Default returns the built-in harbor-evening story.
func Default() *Story {
	return &Story{
		Title:     "An Evening at the Harbor",
		Intro:     introXML,
		HubPrompt: "Who do you sit with?",
		EndLabel:  "End the conversation",
		End:       endFragment,
		Cast: []Character{
			{
				ID:          "lumine",
				Name:        "Lumine",
				Title:       "Traveler from Another World",
				Description: "A mysterious traveler searching for her lost brother across worlds.",
				HubLabel:    "Talk to Lumine about journeying between worlds",
				Fragments: map[types.Stage]string{
					types.StageL1:    lumineL1,
					types.StageL2:    lumineL2,
					types.StageClose: lumineClose,
				},
			},
			{
				ID:          "zhongli",
				Name:        "Zhongli",
				Title:       "Consultant of Wangsheng Funeral Parlor",
				Description: "A knowledgeable gentleman with deep understanding of contracts and ancient history.",
				HubLabel:    "Ask Zhongli about the contracts and destiny",
				Fragments: map[types.Stage]string{
					types.StageL1:    zhongliL1,
					types.StageL2:    zhongliL2,
					types.StageClose: zhongliClose,
				},
			},
			{
				ID:          "tartaglia",
				Name:        "Tartaglia",
				Title:       "Harbinger of the Fatui",
				Description: "A skilled warrior who thrives in conflict and seeks worthy opponents.",
				HubLabel:    "Discuss the harbor's restlessness with Tartaglia",
				Fragments: map[types.Stage]string{
					types.StageL1:    tartagliaL1,
					types.StageL2:    tartagliaL2,
					types.StageClose: tartagliaClose,
				},
			},
			{
				ID:          "venti",
				Name:        "Venti",
				Title:       "Bard of Mondstadt",
				Description: "A cheerful bard with mysterious knowledge and cryptic songs.",
				HubLabel:    "Listen to Venti's stories about ancient seals",
				Fragments: map[types.Stage]string{
					types.StageL1:    ventiL1,
					types.StageL2:    ventiL2,
					types.StageClose: ventiClose,
				},
			},
		},
	}
}

const lumineL1 = `<character name="Lumine">
  <action expression="Concern">Stepping closer, studying you carefully</action>
  <say>You look tired. How long have you been traveling?</say>
  <action expression="Neutral">Her voice softening with understanding</action>
  <say>I know what it's like to search for something... or someone.</say>
</character>

<choices>
  <choice id="lumine_l1_honest">Be honest about your search</choice>
  <choice id="lumine_l1_deflect">Deflect politely</choice>
  <choice id="lumine_l1_joke">Joke to lighten the mood</choice>
  <choice id="hub_choose_other">Talk to someone else</choice>
</choices>`

const lumineL2 = `<character name="Lumine">
  <action expression="Sad">Her expression grows distant, memories clouding her golden eyes</action>
  <say>Searching is heavy... but lighter when shared.</say>
</character>

<choices>
  <choice id="lumine_l2_her_journey">Ask about her journey</choice>
  <choice id="lumine_l2_harbor">Ask about Liyue Harbor</choice>
  <choice id="hub_choose_other">Talk to someone else</choice>
</choices>`

const lumineClose = `<character name="Lumine">
  <action expression="Determined">Clenching her fists with renewed resolve</action>
  <say>We crossed more worlds than I can count... until an unknown god tore us apart.</say>
  <action expression="Hope">Meeting your gaze</action>
  <say>Maybe that's why your arrival feels right. Two wanderers searching, side by side.</say>
</character>

<character name="Lumine">
  <action expression="Happy">A gentle smile touches her lips</action>
  <say>Tea later? Stories go down easier warm.</say>
</character>

<choices>
  <choice id="hub_return_after_lumine">Return to the group</choice>
</choices>`

const zhongliL1 = `<character name="Zhongli">
  <action expression="Thinking">Pouring tea with ritual grace</action>
  <say>Hospitality precedes inquiry. Please.</say>
</character>

<choices>
  <choice id="zhongli_l1_etiquette">Follow his etiquette carefully</choice>
  <choice id="zhongli_l1_casual">Drink casually</choice>
  <choice id="hub_choose_other">Talk to someone else</choice>
</choices>`

const zhongliL2 = `<character name="Zhongli">
  <action expression="Neutral">Amber eyes reflecting lamplight</action>
  <say>Ancient pacts fray when memory fades. Liyue stands on promises older than stone.</say>
</character>

<choices>
  <choice id="zhongli_l2_seals">Ask about the weakening seals</choice>
  <choice id="zhongli_l2_stakeholders">Ask about the Qixing, adepti, and guilds</choice>
  <choice id="hub_choose_other">Talk to someone else</choice>
</choices>`

const zhongliClose = `<character name="Zhongli">
  <action expression="Thinking">Tracing a quiet ring on the table</action>
  <say>When contracts strain, clarity is currency. Perhaps your arrival fulfills a clause long dormant.</say>
</character>

<choices>
  <choice id="hub_return_after_zhongli">Return to the group</choice>
</choices>`

const tartagliaL1 = `<character name="Tartaglia">
  <action expression="Confident">Cracking his knuckles, playful stance</action>
  <say>Harbor's restless. Do you dance with storms—or hide from them?</say>
</character>

<choices>
  <choice id="tartaglia_l1_spar">Accept a friendly spar later</choice>
  <choice id="tartaglia_l1_banter">Boast back</choice>
  <choice id="tartaglia_l1_intel">Steer to intel</choice>
  <choice id="hub_choose_other">Talk to someone else</choice>
</choices>`

const tartagliaL2 = `<character name="Tartaglia">
  <action expression="Serious">The grin sharpens to a hunter's focus</action>
  <say>Pressure shows truth. This city's brimming with it.</say>
</character>

<choices>
  <choice id="tartaglia_l2_clues">Ask what he's noticed</choice>
  <choice id="tartaglia_l2_tease">Tease him about theatrics</choice>
  <choice id="hub_choose_other">Talk to someone else</choice>
</choices>`

const tartagliaClose = `<character name="Tartaglia">
  <action expression="Confident">Predatory smile easing back to playful</action>
  <say>Strange movements in every nation. Old powers stirring… and you smell like trouble I'd like to meet again.</say>
</character>

<choices>
  <choice id="hub_return_after_tartaglia">Return to the group</choice>
</choices>`

const ventiL1 = `<character name="Venti">
  <action expression="Happy">A playful arpeggio dances through the air</action>
  <say>Old winds hum of locks and keys… and a traveler out of time.</say>
</character>

<choices>
  <choice id="venti_l1_decode">Ask him to decode the verse</choice>
  <choice id="venti_l1_courage_song">Request a song for courage</choice>
  <choice id="hub_choose_other">Talk to someone else</choice>
</choices>`

const ventiL2 = `<character name="Venti">
  <action expression="Thinking">His cheerful mask slips—something ancient peers through</action>
  <say>The winds whisper of voices behind stone, and tide-lyrics carved near the waterline.</say>
</character>

<choices>
  <choice id="venti_l2_parse">Parse the riddle</choice>
  <choice id="venti_l2_more_verse">Laugh it off and ask for another verse</choice>
  <choice id="hub_choose_other">Talk to someone else</choice>
</choices>`

const ventiClose = `<character name="Venti">
  <action expression="Wise">Twinkle-eyed, conspiratorial</action>
  <say>When the breeze stalls, sing it forward. Promises made under starlit skies never quite fade.</say>
</character>

<choices>
  <choice id="hub_return_after_venti">Return to the group</choice>
</choices>`

const endFragment = `<Narrator>As the evening winds down, warmth and murmurs linger. Threads have been tied—some taut, some left to sway in the night air.</Narrator>
<Narrator>Whatever brought you here is only the prologue. The harbor moon climbs; your path is just beginning.</Narrator>`
