package chat

import "fmt"

const (
	thinkingText = "Thinking..."
	finishLabel  = "Finish"
	backLabel    = "Back"

	helpText  = "This tool helps you think about symptom urgency. It does not give a medical diagnosis. Use /start to begin."
	resetText = "Reset complete. Use /start to begin again."

	linkWalletHelpText = "To link your wallet for cross-platform chat history:\n\n" +
		"1. Connect your wallet on the web app\n" +
		"2. Use the /linkwallet command with your wallet address:\n" +
		"   /linkwallet 0xYourWalletAddress\n\n" +
		"This will sync your chat history across Telegram and the web app."
	invalidWalletText    = "Invalid wallet address format. Please provide a valid Ethereum/Avalanche address (0x...)."
	walletLinkFailedText = "Failed to link wallet. Please try again later."

	unknownSymptomNotice = "Unknown symptom"
)

func greetingText(firstName string) string {
	greeting := "Hello"
	if firstName != "" {
		greeting += " " + firstName
	}
	return greeting + "\nFirst choose a body system in the bottom menu. Then pick symptoms. Press Finish when done."
}

func categoryPromptText(category string) string {
	return fmt.Sprintf("%s: choose a symptom below.", category)
}

func savedText(symptom string, emptyFlow bool) string {
	if emptyFlow {
		return fmt.Sprintf("Saved %s. You can select another symptom or press Finish.", symptom)
	}
	return fmt.Sprintf("Saved %s. Choose another symptom or press Finish.", symptom)
}

func walletLinkedText(address string) string {
	return fmt.Sprintf("✅ Wallet linked successfully!\n\nAddress: %s\n\nYour chat history will now sync across Telegram and the web app.", address)
}
