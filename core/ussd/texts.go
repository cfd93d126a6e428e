package ussd

// Caller-facing guidance and warning texts. Most callers are on feature
// phones where gateways paginate long screens behind a MORE/98 key, so the
// texts steer people away from retyping the service code mid-session.

const (
	// TextMoreWarning precedes long screens on gateways known to paginate.
	TextMoreWarning = "NOTE:\nIf you see MORE / 98, wait for the next screen.\nDo NOT retype the full code.\n"

	// TextSessionRestarted opens the reply after an expired or abandoned
	// conversation is replaced by a fresh one.
	TextSessionRestarted = "Session restarted.\nPlease start again calmly.\n"

	// TextInvalidOption precedes the reprompt after an unmatched choice.
	TextInvalidOption = "Invalid choice.\nPlease press ONE valid number.\n"

	// TextNameHint precedes the reprompt after a rejected business name.
	TextNameHint = "Enter business name ONLY.\nNo numbers.\n"

	// TextPhoneHint precedes the reprompt after a rejected contact number.
	TextPhoneHint = "Enter a valid phone number.\nExample: 0712345678\n"

	// TextEmptyHint precedes the reprompt after blank free-text input.
	TextEmptyHint = "Nothing received.\nPlease type an answer.\n"

	// TextTooManyRetries ends the conversation after the retry limit.
	TextTooManyRetries = "Too many invalid attempts.\nSession closed. Dial again to restart."

	// TextGoodbye ends the conversation after the caller dials the exit code.
	TextGoodbye = "Goodbye.\nThank you for using Village Marketplace."

	// TextSaved confirms a stored listing.
	TextSaved = "Saved! You are now listed.\nThank you for using Village Marketplace."

	// TextMissingData ends a publish flow whose collected fields are
	// incomplete.
	TextMissingData = "Missing data. Please try again."

	// TextTryAgain is the generic reply when a dependency fails. It never
	// claims success.
	TextTryAgain = "Service is busy.\nPlease try again in a moment."

	// TextNoListings fills an empty browse page.
	TextNoListings = "No listings yet.\nBe the first: dial again and press 8."

	// TextNoRecent fills the recent-numbers screen before any reveal.
	TextNoRecent = "None yet."
)
