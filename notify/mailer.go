package notify

import (
	"fmt"
	"time"

	"github.com/WILTYS/bookinails/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer delivers booking emails over SMTP. A zero-value host disables
// delivery entirely; sends then log and succeed.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewMailer() *Mailer {
	return &Mailer{
		host: config.AppConfig.SMTPServer,
		port: config.AppConfig.SMTPPort,
		user: config.AppConfig.SMTPUsername,
		pass: config.AppConfig.SMTPPassword,
		from: config.AppConfig.FromEmail,
	}
}

func (m *Mailer) send(to, subject, htmlBody, textBody string) error {
	if m.host == "" {
		zap.L().Info("SMTP disabled, skipping email",
			zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	dialer := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	return dialer.DialAndSend(msg)
}

// SendBookingConfirmation emails the client after a reservation is confirmed.
func (m *Mailer) SendBookingConfirmation(toEmail, toName, salonName string, appointment time.Time, service string, price float64) error {
	subject := fmt.Sprintf("Confirmation de votre réservation chez %s", salonName)
	when := appointment.Format("02/01/2006 à 15:04")

	html := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h1>Bookinails</h1>
<h2>Bonjour %s,</h2>
<p>Votre réservation a été confirmée avec succès !</p>
<div>
<h3>Détails de votre réservation</h3>
<p><strong>Salon :</strong> %s</p>
<p><strong>Service :</strong> %s</p>
<p><strong>Date :</strong> %s</p>
<p><strong>Prix :</strong> %.2f€</p>
</div>
<p>Vous recevrez un rappel 24h avant votre rendez-vous.</p>
<p>Merci de votre confiance !</p>
</body></html>`, toName, salonName, service, when, price)

	text := fmt.Sprintf(`Bonjour %s,

Votre réservation a été confirmée avec succès !

Détails :
- Salon : %s
- Service : %s
- Date : %s
- Prix : %.2f€

Merci de votre confiance !
Bookinails`, toName, salonName, service, when, price)

	return m.send(toEmail, subject, html, text)
}

// Send24hReminder emails the client the day before the appointment.
func (m *Mailer) Send24hReminder(toEmail, toName, salonName string, appointment time.Time, service string) error {
	subject := fmt.Sprintf("Rappel : Votre rendez-vous chez %s demain", salonName)
	when := appointment.Format("02/01/2006 à 15:04")

	html := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h1>Rappel Bookinails</h1>
<h2>Bonjour %s,</h2>
<p>N'oubliez pas votre rendez-vous demain !</p>
<div>
<h3>Demain - %s</h3>
<p><strong>Salon :</strong> %s</p>
<p><strong>Service :</strong> %s</p>
</div>
<p>À très bientôt !</p>
</body></html>`, toName, when, salonName, service)

	text := fmt.Sprintf(`Bonjour %s,

N'oubliez pas votre rendez-vous demain !

Demain - %s
- Salon : %s
- Service : %s

À très bientôt !
Bookinails`, toName, when, salonName, service)

	return m.send(toEmail, subject, html, text)
}
