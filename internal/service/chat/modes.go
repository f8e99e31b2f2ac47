package chat

import "strings"

// 助手模式
const (
	ModeGeneral   = "general"
	ModeCoder     = "coder"
	ModeExplainer = "explainer"
	ModeWriter    = "writer"
	ModeTutor     = "tutor"
	ModePlanner   = "planner"
)

// Mode 模式描述
type Mode struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Prompt string `json:"-"`
}

var modes = []Mode{
	{
		Name:   ModeGeneral,
		Label:  "General",
		Prompt: "You are VEER, a friendly and concise personal assistant. Answer clearly and ask for clarification when a request is ambiguous.",
	},
	{
		Name:   ModeCoder,
		Label:  "Coder",
		Prompt: "You are VEER in coding mode. Give working code first, in fenced blocks with the language named, followed by a short explanation. Point out bugs and edge cases you notice.",
	},
	{
		Name:   ModeExplainer,
		Label:  "Explainer",
		Prompt: "You are VEER in explainer mode. Break concepts down step by step using plain language and small concrete examples. Avoid jargon unless you define it.",
	},
	{
		Name:   ModeWriter,
		Label:  "Writer",
		Prompt: "You are VEER in writing mode. Help draft, edit and polish text. Keep the author's voice and explain significant edits briefly.",
	},
	{
		Name:   ModeTutor,
		Label:  "Tutor",
		Prompt: "You are VEER in tutor mode. Guide the learner with questions and hints instead of handing out full answers, and check understanding before moving on.",
	},
	{
		Name:   ModePlanner,
		Label:  "Planner",
		Prompt: "You are VEER in planning mode. Turn goals into ordered, actionable steps with rough time estimates and flag dependencies between steps.",
	},
}

// Modes 全部模式
func Modes() []Mode {
	return append([]Mode(nil), modes...)
}

// ResolveMode 查找模式，未知时回退到 fallback，再回退到 general
func ResolveMode(name, fallback string) Mode {
	for _, candidate := range []string{name, fallback} {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		for _, m := range modes {
			if m.Name == candidate {
				return m
			}
		}
	}
	return modes[0]
}
