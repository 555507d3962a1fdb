package services

import (
	"crypto/tls"
	"fmt"
	"log"

	"gopkg.in/gomail.v2"

	"github.com/yuewan10000-ops/task-platform/models"
)

// EmailService 邮件服务
type EmailService struct {
	host     string
	port     int
	user     string
	password string
	from     string
}

// NewEmailService 创建邮件服务
func NewEmailService(host string, port int, user, password, from string) *EmailService {
	return &EmailService{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
	}
}

// NotifyWithdrawDecision 发送取款审核结果通知邮件
func (s *EmailService) NotifyWithdrawDecision(to string, amount float64, status string, note *string) error {
	subject := "【任务平台】取款审核结果通知"
	body := s.buildWithdrawDecisionHTML(amount, status, note)

	return s.sendEmail(to, subject, body)
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()

	// 设置发件人
	m.SetHeader("From", s.from)

	// 设置收件人
	m.SetHeader("To", to)

	// 设置主题
	m.SetHeader("Subject", subject)

	// 设置邮件正文（HTML格式）
	m.SetBody("text/html", body)

	// 创建SMTP拨号器
	d := gomail.NewDialer(s.host, s.port, s.user, s.password)

	// QQ邮箱需要TLS
	d.TLSConfig = &tls.Config{InsecureSkipVerify: true}

	// 发送邮件
	if err := d.DialAndSend(m); err != nil {
		log.Printf("ERROR: Failed to send email to %s: %v", to, err)
		return fmt.Errorf("发送邮件失败")
	}

	log.Printf("INFO: Email sent successfully to %s", to)
	return nil
}

// buildWithdrawDecisionHTML 构建取款审核结果邮件HTML
func (s *EmailService) buildWithdrawDecisionHTML(amount float64, status string, note *string) string {
	statusText := "已通过"
	statusColor := "#4CAF50"
	if status == models.RequestStatusRejected {
		statusText = "已驳回，金额已退回余额"
		statusColor = "#F44336"
	}

	noteText := ""
	if note != nil && *note != "" {
		noteText = fmt.Sprintf(`<p>审核备注：%s</p>`, *note)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .container {
            background-color: #f9f9f9;
            border-radius: 10px;
            padding: 30px;
            box-shadow: 0 2px 5px rgba(0,0,0,0.1);
        }
        .header {
            text-align: center;
            color: %s;
            margin-bottom: 30px;
        }
        .amount-box {
            background-color: #fff;
            border: 2px dashed %s;
            border-radius: 5px;
            padding: 20px;
            text-align: center;
            margin: 20px 0;
        }
        .amount {
            font-size: 32px;
            font-weight: bold;
            color: %s;
        }
        .info {
            color: #666;
            font-size: 14px;
            margin-top: 20px;
        }
        .footer {
            text-align: center;
            color: #999;
            font-size: 12px;
            margin-top: 30px;
            padding-top: 20px;
            border-top: 1px solid #ddd;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>任务平台</h1>
            <h2>取款审核结果</h2>
        </div>

        <p>您好！</p>
        <p>您的取款申请%s，金额：</p>

        <div class="amount-box">
            <div class="amount">%.2f</div>
        </div>

        <div class="info">
            %s
            <p>• 如有疑问请联系在线客服</p>
            <p>• 如非本人操作，请及时修改密码</p>
        </div>

        <div class="footer">
            <p>此邮件由系统自动发送，请勿回复</p>
            <p>© 2024 任务平台 版权所有</p>
        </div>
    </div>
</body>
</html>
`, statusColor, statusColor, statusColor, statusText, amount, noteText)
}
