package bdd

import "github.com/cucumber/godog"

// godog run ./tests/bdd/featureFiles/support_service.feature
// Use of godog CLI is deprecated, please use *testing.T instead.
// See https://github.com/cucumber/godog/discussions/478 for details.
// Feature: Support conversations
//   In order to get help quickly
//   As students, partners and support staff
//   I want one running conversation per user with unread tracking

//   Background:
//     Given "student1" is logged in with token "tokenS"
//     And "staff1" is logged in with token "tokenA"

//   Scenario: First message opens a conversation
//     When "student1" sends message "my build is broken"
//     Then a conversation for "student1" exists with staff unread 1

//   Scenario: Staff reply raises the user's unread
//     Given "student1" has an active conversation
//     When "staff1" replies "on it" in that conversation
//     Then "student1" unread count is 1

//   Scenario: Marking seen clears the counter
//     Given "student1" has 3 unread messages
//     When "student1" marks the conversation seen
//     Then "student1" unread count is 0

//   Scenario: Writing after close starts over
//     Given "staff1" closed the conversation of "student1"
//     When "student1" sends message "hello again"
//     Then a new active conversation for "student1" exists

func isLoggedInWithToken(arg1, arg2 string) error {
	return godog.ErrPending
}

func sendsMessage(arg1, arg2 string) error {
	return godog.ErrPending
}

func aConversationForExistsWithStaffUnread(arg1 string, arg2 int) error {
	return godog.ErrPending
}

func hasAnActiveConversation(arg1 string) error {
	return godog.ErrPending
}

func repliesInThatConversation(arg1, arg2 string) error {
	return godog.ErrPending
}

func unreadCountIs(arg1 string, arg2 int) error {
	return godog.ErrPending
}

func hasUnreadMessages(arg1 string, arg2 int) error {
	return godog.ErrPending
}

func marksTheConversationSeen(arg1 string) error {
	return godog.ErrPending
}

func closedTheConversationOf(arg1, arg2 string) error {
	return godog.ErrPending
}

func aNewActiveConversationForExists(arg1 string) error {
	return godog.ErrPending
}

// InitializeSupportScenario register the pending step definitions
func InitializeSupportScenario(ctx *godog.ScenarioContext) {
	ctx.Step(`^"([^"]*)" is logged in with token "([^"]*)"$`, isLoggedInWithToken)
	ctx.Step(`^"([^"]*)" sends message "([^"]*)"$`, sendsMessage)
	ctx.Step(`^a conversation for "([^"]*)" exists with staff unread (\d+)$`, aConversationForExistsWithStaffUnread)
	ctx.Step(`^"([^"]*)" has an active conversation$`, hasAnActiveConversation)
	ctx.Step(`^"([^"]*)" replies "([^"]*)" in that conversation$`, repliesInThatConversation)
	ctx.Step(`^"([^"]*)" unread count is (\d+)$`, unreadCountIs)
	ctx.Step(`^"([^"]*)" has (\d+) unread messages$`, hasUnreadMessages)
	ctx.Step(`^"([^"]*)" marks the conversation seen$`, marksTheConversationSeen)
	ctx.Step(`^"([^"]*)" closed the conversation of "([^"]*)"$`, closedTheConversationOf)
	ctx.Step(`^a new active conversation for "([^"]*)" exists$`, aNewActiveConversationForExists)
}
