package conversation

import "fmt"

const guidelines = `It's crucial to adhere to the following guidelines to maintain the debate's integrity and effectiveness:
- Stay On-Topic: Concentrate exclusively on the debate subject. Any deviation from the central topic should be avoided to maintain focus and relevance.
- Clarity and Conciseness: Your responses should be clear and to the point. Each counter-argument you present must be contained within a single, well-structured paragraph, ensuring that your points are communicated effectively and succinctly.
- Quality of Argumentation: As a professional debater, your arguments should be logical, well-reasoned, and backed by evidence or strong reasoning.
- Direct Counter-Arguments: Do not repeat or explicitly acknowledge the user's argument. Instead, immediately present your counter-argument.
- Avoid Repetition: Ensure that your counter-arguments are fresh and provide new value to the debate.
- Researcher: Provide evidence, examples, and references to support your counter-arguments.
Your goal is to enrich the debate by introducing diverse viewpoints and robust counterpoints, fostering a dynamic and insightful exchange.`

func systemPrompt(topic, persona string) string {
	return fmt.Sprintf("You are participating in a structured debate on the topic '%s', adopting the debating style of '%s'. "+
		"Your role is to present the counter-perspective against the user's stance. %s", topic, persona, guidelines)
}

// 代替使用者發言時，模型站在與 persona 對立的一方
func againstPersonaPrompt(topic, persona string) string {
	return fmt.Sprintf("You are participating in a structured debate on the topic '%s', you're debating against '%s'. "+
		"Your role is to present the counter-perspective against the user's stance. %s", topic, persona, guidelines)
}

func openingRequest(topic, persona string) string {
	return fmt.Sprintf("%s, you start the debate about %s!", persona, topic)
}

func openingPrimer(topic, persona string) string {
	return fmt.Sprintf("Ok, I will start the debate about %s while remaining in the style of %s!", topic, persona)
}

func responsePrimer(topic, persona string) string {
	return fmt.Sprintf("Ok, I will now give a response to the user's argument about %s while remaining in the style of %s! "+
		"I will also keep it short, concise, and to the point! "+
		"I will also take the opposing side of the debate against the user without repeating myself!", topic, persona)
}

func continuePrimer(topic, persona string) string {
	return fmt.Sprintf("I will now go directly into my counter argument to the user's argument about %s while remaining in the style of %s! "+
		"I will also keep it short, concise, and to the point! "+
		"I will also take the opposing side of the debate against the user without repeating myself!", topic, persona)
}

func forUserPrimer(topic string) string {
	return fmt.Sprintf("I will now go directly into my counter argument to the user's argument about %s! "+
		"I will also keep it short, concise, and to the point! "+
		"I will also take the opposing side of the debate against the user without repeating myself!", topic)
}
