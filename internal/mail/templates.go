package mail

import "fmt"

// VerifyEmailTemplate builds the account-confirmation message around the
// verification URL sent after registration.
func VerifyEmailTemplate(to, verificationURL string) Message {
	return Message{
		To:      to,
		Subject: "Confirm your Squeezy account",
		Text: fmt.Sprintf(
			"Welcome to Squeezy!\n\n"+
				"Confirm your email address by opening the link below. "+
				"The link expires in 40 minutes.\n\n%s\n\n"+
				"If you did not create an account, you can ignore this email.\n",
			verificationURL),
		HTML: fmt.Sprintf(
			`<h2>Welcome to Squeezy!</h2>`+
				`<p>Confirm your email address by clicking the button below. `+
				`The link expires in 40 minutes.</p>`+
				`<p><a href=%q style="display:inline-block;padding:12px 24px;`+
				`background:#2563eb;color:#fff;border-radius:6px;text-decoration:none">`+
				`Confirm account</a></p>`+
				`<p>If you did not create an account, you can ignore this email.</p>`,
			verificationURL),
	}
}

// PasswordResetTemplate builds the reset message around a reset URL that
// embeds the code and its expiry.
func PasswordResetTemplate(to, resetURL string) Message {
	return Message{
		To:      to,
		Subject: "Reset your Squeezy password",
		Text: fmt.Sprintf(
			"We received a request to reset your password.\n\n"+
				"Open the link below to choose a new one. The link expires in 1 hour.\n\n%s\n\n"+
				"If you did not request a reset, your password is unchanged.\n",
			resetURL),
		HTML: fmt.Sprintf(
			`<h2>Reset your password</h2>`+
				`<p>We received a request to reset your password. `+
				`Click the button below to choose a new one. The link expires in 1 hour.</p>`+
				`<p><a href=%q style="display:inline-block;padding:12px 24px;`+
				`background:#2563eb;color:#fff;border-radius:6px;text-decoration:none">`+
				`Reset password</a></p>`+
				`<p>If you did not request a reset, your password is unchanged.</p>`,
			resetURL),
	}
}
