package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// Callback answers and chat replies shown to the admins.
const (
	AnswerAlreadyProcessed = "Giao dịch này đã được xử lý trước đó!"
	AnswerPayConfirmed     = "Thanh toán đã được xác nhận thành công!"
	AnswerBillConfirmed    = "Bill đã được xác nhận!"
	AnswerInputToken       = "Vui lòng nhập số RAN Token theo hướng dẫn!"
	AnswerUnknownAction    = "Thao tác không hợp lệ"
	AnswerFailed           = "Có lỗi xảy ra, vui lòng thử lại."

	ReplyInvalidTokenAmount = "❌ Số RAN Token không hợp lệ. Vui lòng nhập số dương."
	ReplyAddTokenUsage      = "❌ Format không đúng. Vui lòng sử dụng: /addtoken [ORDER_ID] [PHONE] [AMOUNT]"
	ReplyAddTokenFailed     = "❌ Có lỗi xảy ra khi cộng RAN Token. Vui lòng thử lại."

	ButtonConfirmPayment = "✅ Xác nhận thanh toán"
	ButtonConfirmBill    = "✅ Xác nhận bill"
	ButtonInputToken     = "💰 Nhập RAN Token"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// md escapes user supplied text for legacy Markdown messages.
func md(s string) string {
	return markdownEscaper.Replace(s)
}

type OrderItem struct {
	Name     string
	Price    int64
	Quantity int64
	Ice      string
	Sugar    string
}

type Order struct {
	OrderID         string
	TableNumber     string
	UserName        string
	UserPhone       string
	Items           []OrderItem
	VoucherCode     string
	VoucherDiscount int64
	Total           int64
	PaymentMethod   string
	At              time.Time
}

func paymentMethodLabel(method string) string {
	if method == "cash" {
		return "Tiền mặt"
	}
	return "Chuyển khoản"
}

// NewOrderMessage is sent with HTML parse mode.
func NewOrderMessage(o Order) string {
	var b strings.Builder
	b.WriteString("🍹 ĐƠN HÀNG MỚI\n\n")
	fmt.Fprintf(&b, "📋 Mã đơn: %s\n", html.EscapeString(o.OrderID))
	fmt.Fprintf(&b, "🏪 Bàn: %s\n", html.EscapeString(o.TableNumber))
	fmt.Fprintf(&b, "👤 Khách: %s (%s)\n", html.EscapeString(o.UserName), html.EscapeString(o.UserPhone))
	fmt.Fprintf(&b, "💳 Thanh toán: %s\n\n", paymentMethodLabel(o.PaymentMethod))

	b.WriteString("📋 CHI TIẾT ĐƠN HÀNG:\n")
	for i, item := range o.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, html.EscapeString(item.Name))
		fmt.Fprintf(&b, "   • %s đá, %s đường\n", html.EscapeString(item.Ice), html.EscapeString(item.Sugar))
		fmt.Fprintf(&b, "   • SL: %d x %sđ\n", item.Quantity, FormatNumber(item.Price))
		fmt.Fprintf(&b, "   • Thành tiền: %sđ\n\n", FormatNumber(item.Price*item.Quantity))
	}

	if o.VoucherCode != "" && o.VoucherDiscount > 0 {
		fmt.Fprintf(&b, "🎫 Voucher: %s (-%sđ)\n", html.EscapeString(o.VoucherCode), FormatNumber(o.VoucherDiscount))
	}

	fmt.Fprintf(&b, "💰 TỔNG TIỀN: %sđ\n\n", FormatNumber(o.Total))
	fmt.Fprintf(&b, "⏰ Thời gian: %s\n", FormatTime(o.At))
	b.WriteString("🔄 Tự động xác nhận sau 3 phút nếu không có thay đổi")
	return b.String()
}

// CancellationMessage is sent with HTML parse mode.
func CancellationMessage(o Order) string {
	var b strings.Builder
	b.WriteString("🚫 KHÁCH ĐỔI Ý\n\n")
	fmt.Fprintf(&b, "📋 Mã đơn: %s\n", html.EscapeString(o.OrderID))
	fmt.Fprintf(&b, "🏪 Bàn: %s\n", html.EscapeString(o.TableNumber))
	fmt.Fprintf(&b, "👤 Khách: %s (%s)\n", html.EscapeString(o.UserName), html.EscapeString(o.UserPhone))
	b.WriteString("\n⚠️ Khách hàng đã hủy đơn hàng này!")
	return b.String()
}

func BillCaption(orderID, userName, phone string, total int64, store string, at time.Time) string {
	return "📸 *BILL THANH TOÁN*\n\n" +
		fmt.Sprintf("📋 *Mã đơn:* %s\n", md(orderID)) +
		fmt.Sprintf("👤 *Khách hàng:* %s\n", md(userName)) +
		fmt.Sprintf("📱 *Số điện thoại:* %s\n", md(phone)) +
		fmt.Sprintf("💳 *Tổng tiền:* %s\n", FormatVND(total)) +
		fmt.Sprintf("⏰ *Thời gian:* %s\n\n", FormatTime(at)) +
		fmt.Sprintf("🏪 *Cửa hàng:* %s", store)
}

func VoucherPurchaseMessage(intentID, phone, voucherName string, amountVND int64, store string, at time.Time) string {
	return "🎫 *MUA VOUCHER MỚI*\n\n" +
		fmt.Sprintf("🆔 *Mã thanh toán:* %s\n", md(intentID)) +
		fmt.Sprintf("👤 *Khách hàng:* %s\n", md(phone)) +
		fmt.Sprintf("🎁 *Voucher:* %s\n", md(voucherName)) +
		fmt.Sprintf("💰 *Số tiền:* %s\n", FormatVND(amountVND)) +
		fmt.Sprintf("⏰ *Thời gian:* %s\n\n", FormatTime(at)) +
		fmt.Sprintf("🏪 *Cửa hàng:* %s\n\n", store) +
		"💳 *Vui lòng chuyển khoản và gửi ảnh QR để xác nhận*"
}

func MemberRegisteredMessage(name, phone, store string, welcomeBonus int64, at time.Time) string {
	return "🎉 *Đăng ký thành viên mới*\n\n" +
		fmt.Sprintf("👤 *Họ tên:* %s\n", md(name)) +
		fmt.Sprintf("📱 *Số điện thoại:* %s\n", md(phone)) +
		fmt.Sprintf("⏰ *Thời gian đăng ký:* %s\n", FormatTime(at)) +
		fmt.Sprintf("🏪 *Cửa hàng:* %s\n", store) +
		fmt.Sprintf("🎁 *Ran Token khởi tạo:* %d tokens", welcomeBonus)
}

func MemberLoginMessage(name, phone, store string, at time.Time) string {
	return "🔐 *Đăng nhập thành viên*\n\n" +
		fmt.Sprintf("👤 *Họ tên:* %s\n", md(name)) +
		fmt.Sprintf("📱 *Số điện thoại:* %s\n", md(phone)) +
		fmt.Sprintf("⏰ *Thời gian đăng nhập:* %s\n", FormatTime(at)) +
		fmt.Sprintf("🏪 *Cửa hàng:* %s", store)
}

func PayConfirmedMessage(phone string, credited, balance int64, shortID string) string {
	return "✅ Thanh toán đã được xác nhận!\n\n" +
		fmt.Sprintf("📱 Số điện thoại: %s\n", html.EscapeString(phone)) +
		fmt.Sprintf("💰 Số RAN đã cộng: %s\n", FormatNumber(credited)) +
		fmt.Sprintf("💳 Số dư hiện tại: %s RAN\n", FormatNumber(balance)) +
		fmt.Sprintf("🆔 Mã giao dịch: %s", html.EscapeString(shortID))
}

func BillConfirmedMessage(orderID, phone, confirmedBy string, at time.Time) string {
	return "✅ *Bill đã được xác nhận*\n\n" +
		fmt.Sprintf("🆔 Mã đơn: %s\n", md(orderID)) +
		fmt.Sprintf("📱 SĐT: %s\n", md(phone)) +
		fmt.Sprintf("👤 Xác nhận bởi: %s\n", md(confirmedBy)) +
		fmt.Sprintf("⏰ Thời gian: %s\n\n", FormatTime(at)) +
		"💡 Vui lòng nhập số RAN Token để cộng cho khách hàng."
}

func TokenInputMessage(orderID, phone string) string {
	return "💰 *Nhập số RAN Token*\n\n" +
		fmt.Sprintf("🆔 Mã đơn: %s\n", md(orderID)) +
		fmt.Sprintf("📱 SĐT: %s\n\n", md(phone)) +
		"📝 Vui lòng reply tin nhắn này với format:\n" +
		fmt.Sprintf("`/addtoken %s %s [SỐ_TOKEN]`\n\n", orderID, phone) +
		fmt.Sprintf("Ví dụ: `/addtoken %s %s 50000`", orderID, phone)
}

func TokenAddedMessage(orderID, phone string, amount, balance int64, at time.Time) string {
	return "✅ *Đã cộng RAN Token thành công!*\n\n" +
		fmt.Sprintf("🆔 Mã đơn: %s\n", md(orderID)) +
		fmt.Sprintf("📱 SĐT: %s\n", md(phone)) +
		fmt.Sprintf("💰 Số RAN đã cộng: %s\n", FormatNumber(amount)) +
		fmt.Sprintf("💳 Số dư hiện tại: %s RAN\n", FormatNumber(balance)) +
		fmt.Sprintf("⏰ Thời gian: %s\n\n", FormatTime(at)) +
		"🎉 Khách hàng sẽ nhận được thông báo trên website!"
}

func TokenAlreadyAddedMessage(orderID, phone string) string {
	return fmt.Sprintf("ℹ️ Đơn %s của %s đã được cộng RAN Token trước đó.", orderID, phone)
}

func UnmatchedTransactionMessage(txnID, amountVND, contentRaw, reason string) string {
	return "⚠️ *GIAO DỊCH CHƯA KHỚP*\n\n" +
		fmt.Sprintf("🆔 Mã giao dịch: %s\n", md(txnID)) +
		fmt.Sprintf("💰 Số tiền: %s đ\n", amountVND) +
		fmt.Sprintf("📝 Nội dung: %s\n", md(contentRaw)) +
		fmt.Sprintf("❓ Lý do: %s", md(reason))
}
