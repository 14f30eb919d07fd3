package sqlinline

const QSelectUserTierByID = `--sql b5b56de3-f6c8-473a-909a-13fbfc26458b
select id, email, tier
from users
where id = $1::uuid
limit 1;
`

const QSelectUserTierByEmail = `--sql a9aead66-e33f-4a74-997b-bb0d233579b2
select id, email, tier
from users
where email = $1::text
limit 1;
`

const QUpdateUserTier = `--sql 039ae800-c35f-40e4-9fa1-34c076ec6040
update users
set tier = $2::text,
    updated_at = now()
where id = $1::uuid
returning id, email, tier;
`
