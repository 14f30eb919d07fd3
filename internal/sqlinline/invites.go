package sqlinline

const QEnsureUserFamily = `--sql 6dbcc38c-8513-4f2a-aca3-91bd053cb303
update users
set family_id = coalesce(family_id, $2::uuid),
    updated_at = now()
where id = $1::uuid
returning family_id;
`

const QInsertFamilyInvite = `--sql 26a71067-5442-4a7e-bc81-61b534931814
insert into family_invites(code, family_id, created_by, expires_at, created_at)
values ($1::text, $2::uuid, $3::uuid, $4::timestamptz, now());
`

const QSelectFamilyInvite = `--sql 4ca0e5b9-67ea-4438-95eb-7decd33dd451
select code, family_id, created_by, expires_at, coalesce(redeemed_by::text, ''), created_at
from family_invites
where code = $1::text
limit 1;
`

const QRedeemFamilyInvite = `--sql 76616d91-defe-4906-b3be-0194ac975f24
with redeemed as (
    update family_invites
    set redeemed_by = $2::uuid
    where code = $1::text
      and redeemed_by is null
      and expires_at > now()
    returning family_id
)
update users
set family_id = (select family_id from redeemed),
    updated_at = now()
where id = $2::uuid
  and exists (select 1 from redeemed)
returning family_id;
`
