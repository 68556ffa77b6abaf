package service

import (
	"fmt"

	"meetroom/internal/models"
)

// Mail texts for each workflow step. Bodies are small HTML fragments; the
// notifier wraps them into a full MIME message.

func requestReceivedMail(b *models.Booking) (subject, body string) {
	subject = "Your room reservation request was received"
	body = fmt.Sprintf(`<h3>Hello, %s!</h3>
<p>Your meeting room reservation request was received and is pending approval.</p>
<p><strong>Request details:</strong></p>
<ul>
<li><strong>Date:</strong> %s</li>
<li><strong>Time:</strong> %s &ndash; %s</li>
<li><strong>Subject:</strong> %s</li>
</ul>
<p>You will receive another email once your request is approved or rejected.</p>`,
		b.RequesterName,
		b.Date.Format("02/01/2006"),
		b.Window.Start, b.Window.End,
		b.Subject,
	)
	return subject, body
}

func awaitingDecisionMail(b *models.Booking) (subject, body string) {
	subject = fmt.Sprintf("New reservation request: %s", b.Subject)
	body = fmt.Sprintf(`<h3>New meeting room reservation request</h3>
<p>A new reservation was requested and awaits your decision.</p>
<ul>
<li><strong>Requester:</strong> %s (%s)</li>
<li><strong>Date:</strong> %s</li>
<li><strong>Time:</strong> %s &ndash; %s</li>
<li><strong>Subject:</strong> %s</li>
</ul>
<p>Open the admin panel to approve or reject it.</p>`,
		b.RequesterName, b.RequesterEmail,
		b.Date.Format("02/01/2006"),
		b.Window.Start, b.Window.End,
		b.Subject,
	)
	return subject, body
}

func approvedMail(b *models.Booking) (subject, body string) {
	subject = "Your reservation was APPROVED"
	body = fmt.Sprintf(`Hello, %s.<br><br>Your reservation for the meeting "%s" on %s from %s to %s was <b>approved</b>.`,
		b.RequesterName,
		b.Subject,
		b.Date.Format("02/01/2006"),
		b.Window.Start, b.Window.End,
	)
	return subject, body
}

func rejectedMail(b *models.Booking) (subject, body string) {
	subject = "Your reservation was REJECTED"
	body = fmt.Sprintf(`Hello, %s.<br><br>Your reservation for the meeting "%s" on %s from %s to %s was <b>rejected</b>. Please contact the administrator for details or try another time.`,
		b.RequesterName,
		b.Subject,
		b.Date.Format("02/01/2006"),
		b.Window.Start, b.Window.End,
	)
	return subject, body
}
