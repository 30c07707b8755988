// Package names hands out random display names such as "Cool Fox".
package names

import (
	"math/rand/v2"
)

var descriptors = []string{
	"Awesome", "Cool", "Great", "Amazing", "Fantastic", "Wonderful", "Super",
	"Fabulous", "Brilliant", "Clever", "Dazzling", "Elegant", "Fearless",
	"Graceful", "Heroic", "Incredible", "Jolly", "Kind", "Lovely", "Magical",
	"Noble", "Outstanding", "Perfect", "Quick", "Radiant", "Splendid",
	"Terrific", "Unique", "Vibrant",
}

type word struct {
	text  string
	emoji string
}

var words = []word{
	{"Apple", "🍎"}, {"Banana", "🍌"}, {"Cherry", "🍒"}, {"Dog", "🐶"},
	{"Elephant", "🐘"}, {"Frog", "🐸"}, {"Guitar", "🎸"}, {"House", "🏠"},
	{"Igloo", "🧊"}, {"Jungle", "🌴"}, {"Kangaroo", "🦘"}, {"Lemon", "🍋"},
	{"Mango", "🥭"}, {"Noodle", "🍜"}, {"Octopus", "🐙"}, {"Penguin", "🐧"},
	{"Quilt", "🏘️"}, {"Rabbit", "🐰"}, {"Snake", "🐍"}, {"Tiger", "🐯"},
	{"Umbrella", "🌂"}, {"Violin", "🎻"}, {"Watermelon", "🍉"}, {"Xylophone", "🎹"},
	{"Yacht", "🛥️"}, {"Zebra", "🦓"}, {"Bear", "🐻"}, {"Cat", "🐱"},
	{"Dolphin", "🐬"}, {"Eagle", "🦅"}, {"Fish", "🐟"}, {"Giraffe", "🦒"},
	{"Hippo", "🦛"}, {"Ice cream", "🍦"}, {"Jellyfish", "🪼"}, {"Koala", "🐨"},
	{"Lion", "🦁"}, {"Monkey", "🐒"}, {"Narwhal", "🐋"}, {"Owl", "🦉"},
	{"Panda", "🐼"}, {"Bee", "🐝"}, {"Raccoon", "🦝"}, {"Shark", "🦈"},
	{"Turtle", "🐢"}, {"Unicorn", "🦄"}, {"Vulture", "🦅"}, {"Whale", "🐋"},
	{"Fox", "🦊"}, {"Cow", "🐮"},
}

// Generator picks names from its random source. It is not safe for
// concurrent use unless built with New(nil).
type Generator struct {
	intN func(n int) int
}

// New returns a generator backed by r, or by the global source if r is nil.
func New(r *rand.Rand) *Generator {
	if r == nil {
		return &Generator{intN: rand.IntN}
	}
	return &Generator{intN: r.IntN}
}

// Next returns a "<Descriptor> <Word>" name and the word's emoji.
func (g *Generator) Next() (name, emoji string) {
	w := words[g.intN(len(words))]
	return descriptors[g.intN(len(descriptors))] + " " + w.text, w.emoji
}
