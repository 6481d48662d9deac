package messages

// User-visible notice templates. Warnings are composed by the engine as
// one message per decision, listing every violated category.

const (
	MsgProhibitedContent = "%s, your message was removed: %s"

	MsgReasonLinks        = "links are not allowed right now"
	MsgReasonBlacklisted  = "the link points to a blocked domain"
	MsgReasonMedia        = "this attachment type is not allowed"
	MsgReasonTextPattern  = "the message contains a prohibited word"
	MsgReasonForward      = "forwarded messages are not allowed"
	MsgReasonWordCount    = "the message length is outside the allowed range"
	MsgReasonRateLimit    = "you are sending messages too fast"
	MsgReasonDuplicate    = "please do not repeat the same message"
	MsgReasonQuietHours   = "the chat is currently in quiet hours"
	MsgReasonRestricted   = "you are restricted until %s"

	MsgQuietHoursStarted = "Quiet hours have started. Only admins may post."
	MsgQuietHoursEnded   = "Quiet hours have ended. Happy chatting!"

	MsgMandatoryInvites = "you need to invite at least %d members before posting (%d so far)"
	MsgMandatoryChannel = "you must join the required channel before posting here"

	MsgVoteMuteStarted  = "A vote to mute %s has started: %d/%d votes."
	MsgVoteMuteProgress = "Vote to mute %s: %d/%d votes."
	MsgVoteMuteDone     = "%s has been muted by community vote."
	MsgVoteMuteInvalid  = "Reply to a message with /votemute to start a vote."
	MsgVoteMuteSelf     = "You cannot vote to mute yourself."
	MsgVoteMuteAdmin    = "Admins cannot be muted by vote."
)
